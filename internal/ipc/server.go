package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"gazerec/internal/clicktrack"
	"gazerec/internal/logging"
	"gazerec/internal/recording"
	"gazerec/internal/sessiondata"
)

// Session is the coordinator surface the bridge forwards into.
type Session interface {
	State() recording.State
	GameMetadata() sessiondata.GameMetadata
	SetInitialCalibration(ctx context.Context, data sessiondata.CalibrationData)
	SetCardPositions(cards []sessiondata.CardPosition)
	MarkGameStart(at time.Time)
	MarkGameEnd(at time.Time)
	UpdateGameMetadata(update sessiondata.GameMetadataUpdate)
	Pause()
	Resume()
}

// Dispatcher receives pointer events; *clicktrack.Root satisfies it.
type Dispatcher interface {
	Dispatch(ev clicktrack.PointerEvent)
}

// FullscreenReporter receives display changes; *recording.BridgeDisplay
// satisfies it.
type FullscreenReporter interface {
	SetFullscreen(active bool)
}

// Bridge bundles what the server forwards into.
type Bridge struct {
	Session Session
	Clicks  Dispatcher
	Display FullscreenReporter
	// Stop is called once when a client requests the end of the run.
	Stop func()
	Now  func() time.Time
}

// Server exposes a recording via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, bridge Bridge, logger *slog.Logger) (*Server, error) {
	if bridge.Session == nil {
		return nil, errors.New("ipc server requires a session")
	}
	if bridge.Now == nil {
		bridge.Now = time.Now
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{bridge: bridge, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Serve starts accepting RPC connections until Close or context cancellation.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "bridge clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions"),
				)
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.track(conn, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
			}()
		}
	}()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		_ = s.listener.Close()
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// Close stops the server, drops open connections and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	_ = s.listener.Close()
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale socket may block the next recording"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	bridge   Bridge
	logger   *slog.Logger
	ctx      context.Context
	stopOnce sync.Once
}

func (s *service) millis(ts int64) time.Time {
	if ts == 0 {
		return s.bridge.Now()
	}
	return time.UnixMilli(ts)
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.State = s.bridge.Session.State()
	resp.GameMetadata = s.bridge.Session.GameMetadata()
	return nil
}

func (s *service) Calibration(req CalibrationRequest, resp *AckResponse) error {
	s.bridge.Session.SetInitialCalibration(s.ctx, req.Data)
	s.logger.Debug("calibration forwarded", logging.Int("points", len(req.Data.Points)))
	resp.OK = true
	return nil
}

func (s *service) CardPositions(req CardPositionsRequest, resp *AckResponse) error {
	s.bridge.Session.SetCardPositions(req.Cards)
	resp.OK = true
	return nil
}

func (s *service) GameStart(req GameEventRequest, resp *AckResponse) error {
	s.bridge.Session.MarkGameStart(s.millis(req.Timestamp))
	s.logger.Info("game started", logging.String(logging.FieldEventType, "game_start"))
	resp.OK = true
	return nil
}

func (s *service) GameEnd(req GameEventRequest, resp *AckResponse) error {
	s.bridge.Session.MarkGameEnd(s.millis(req.Timestamp))
	s.logger.Info("game ended", logging.String(logging.FieldEventType, "game_end"))
	resp.OK = true
	return nil
}

func (s *service) GameMetadata(req GameMetadataRequest, resp *AckResponse) error {
	s.bridge.Session.UpdateGameMetadata(req.Update)
	resp.OK = true
	return nil
}

func (s *service) Click(req ClickRequest, resp *ClickResponse) error {
	if s.bridge.Clicks == nil {
		return errors.New("click tracking is not active")
	}
	s.bridge.Clicks.Dispatch(clicktrack.PointerEvent{
		ClientX: req.ClientX,
		ClientY: req.ClientY,
		Target:  clicktrack.LinkPath(req.Path),
	})
	resp.ClickCount = s.bridge.Session.State().ClickCount
	return nil
}

func (s *service) Fullscreen(req FullscreenRequest, resp *AckResponse) error {
	if s.bridge.Display == nil {
		return errors.New("fullscreen reporting is not supported")
	}
	s.bridge.Display.SetFullscreen(req.Active)
	resp.OK = true
	return nil
}

func (s *service) Pause(_ Empty, resp *AckResponse) error {
	s.bridge.Session.Pause()
	resp.OK = true
	return nil
}

func (s *service) Resume(_ Empty, resp *AckResponse) error {
	s.bridge.Session.Resume()
	resp.OK = true
	return nil
}

func (s *service) Stop(_ Empty, resp *AckResponse) error {
	s.logger.Info("stop requested", logging.String(logging.FieldEventType, "stop_requested"))
	if s.bridge.Stop != nil {
		s.stopOnce.Do(s.bridge.Stop)
	}
	resp.OK = true
	return nil
}
