package capture

import "errors"

var (
	// ErrPermissionDenied indicates the user or OS refused device access.
	ErrPermissionDenied = errors.New("capture permission denied")
	// ErrDeviceNotFound indicates no matching capture device exists.
	ErrDeviceNotFound = errors.New("capture device not found")
	// ErrDeviceBusy indicates another process holds the device.
	ErrDeviceBusy = errors.New("capture device busy")
	// ErrInvalidSurface indicates a display capture of something other than
	// an entire screen.
	ErrInvalidSurface = errors.New("invalid capture surface: entire screen required")
	// ErrUnsupportedMimeType indicates the codec cannot produce the type.
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
)

// Remediation returns a short user-facing hint for a capture failure, or ""
// when err is not a capture sentinel.
func Remediation(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "grant access to the camera/display (check video group membership and device permissions)"
	case errors.Is(err, ErrDeviceNotFound):
		return "connect the device or fix capture.webcam_device / capture.screen_display"
	case errors.Is(err, ErrDeviceBusy):
		return "close other applications using the camera and retry"
	case errors.Is(err, ErrInvalidSurface):
		return "share the entire screen, not a window or tab"
	default:
		return ""
	}
}
