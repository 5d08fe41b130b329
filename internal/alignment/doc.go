// Package alignment computes the start skew between the webcam and screen
// recordings of a session.
//
// Each stream's offset is its first chunk's arrival time minus the session's
// recording start. The stream that started first leads by the difference
// and is trimmed by the same amount. A stream without chunks makes the
// alignment undefined, reported as a nil Info.
package alignment
