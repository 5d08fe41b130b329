// Package capture defines the device and encoder contracts the stream
// recorders depend on.
//
// A Source acquires a live Stream of video Tracks (a webcam or a whole
// display). A Codec reports which container/codec strings it can produce and
// builds Encoders that emit chunks on a channel at a fixed timeslice.
// Production implementations live in capture/ffmpeg; scriptable fakes live in
// capture/capturetest.
package capture
