// Package upload sends finished session archives to object storage.
//
// An Issuer trades a session id and archive filename for a short-lived
// presigned URL; the Uploader then PUTs the archive there directly,
// reporting progress as the body is read. Only a successful upload moves
// the session to the uploaded status, so any failure can be retried.
package upload
