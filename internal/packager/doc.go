// Package packager bundles one session into a zip archive holding
// webcam.<ext>, screen.<ext> and metadata.json.
//
// Video entries are the stored chunks concatenated in arrival order and
// written without compression. metadata.json carries every non-binary
// session field plus the stream alignment and is deflated with
// klauspost/compress.
package packager
