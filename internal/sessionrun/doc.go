// Package sessionrun drives one recording from device acquisition to the
// finalized session record.
//
// Run takes the data-directory lock, starts the coordinator, attaches the
// click tracker, the IPC bridge, the fullscreen guard and the webcam unplug
// monitor, then waits for a stop request, a cancelled context or device
// loss. Finish optionally packages the session and uploads the archive.
package sessionrun
