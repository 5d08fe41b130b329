package devicewatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"gazerec/internal/logging"
)

// Monitor watches for removal of one video4linux device.
type Monitor struct {
	device    string
	logger    *slog.Logger
	onRemoved func(device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	fired   bool
}

// New returns a monitor for device, or nil when device is empty. Symlinks
// such as /dev/v4l/by-id entries are resolved so events can be matched by
// kernel name. onRemoved runs at most once.
func New(device string, logger *slog.Logger, onRemoved func(device string)) *Monitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		device = resolved
	}
	return &Monitor{
		device:    device,
		logger:    logging.NewComponentLogger(logger, "devicewatch"),
		onRemoved: onRemoved,
	}
}

// Device returns the resolved device path being watched.
func (m *Monitor) Device() string {
	if m == nil {
		return ""
	}
	return m.device
}

// Start begins listening for udev netlink events. Connection failures are
// logged and not returned.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; webcam unplug will go unnoticed", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
			logging.String(logging.FieldImpact, "a disconnected webcam will not fail the session"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Debug("device monitor started",
		logging.String(logging.FieldEventType, "device_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the monitor. It is safe to call repeatedly.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "webcam unplug detection may miss events"),
			)
		}
	}
}

// buildMatcher matches ACTION=remove on SUBSYSTEM=video4linux.
func buildMatcher() netlink.Matcher {
	action := "remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" || devname != m.device {
		m.logger.Debug("ignoring device event",
			logging.String("device", devname),
			logging.String("action", string(uevent.Action)),
		)
		return
	}

	m.mu.Lock()
	if m.fired {
		m.mu.Unlock()
		return
	}
	m.fired = true
	m.mu.Unlock()

	logging.WarnWithContext(m.logger, "webcam removed during recording", "webcam_removed",
		logging.String("device", devname),
		logging.String(logging.FieldErrorHint, "reconnect the camera and start a new session"),
		logging.String(logging.FieldImpact, "session is stopped and marked as error"),
	)
	if m.onRemoved != nil {
		m.onRemoved(devname)
	}
}

// deviceName gets the device path from a uevent.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	return "/dev/" + filepath.Base(devpath)
}
