// Package export turns a stored session into an archive file in the export
// directory.
//
// Archives are cached: when export_dir already holds an archive for the
// session it is reused, so a failed upload can be retried without
// re-packaging. Files are written to a temp name and renamed so a crash
// never leaves a truncated archive behind.
package export
