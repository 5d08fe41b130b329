// Package devicewatch listens for udev netlink events and reports when the
// capture webcam disappears mid-recording.
//
// The monitor is best effort: when the netlink socket cannot be opened it
// logs a warning and the recording continues without unplug detection.
package devicewatch
