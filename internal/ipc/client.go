package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"gazerec/internal/clicktrack"
	"gazerec/internal/sessiondata"
)

// Client provides RPC access to a running recording.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

func (c *Client) ack(method string, req any) error {
	var resp AckResponse
	return c.call(method, req, &resp)
}

// Status retrieves the recording state.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Calibrate forwards the initial calibration sequence.
func (c *Client) Calibrate(data sessiondata.CalibrationData) error {
	return c.ack("Calibration", CalibrationRequest{Data: data})
}

// SetCardPositions forwards the board layout.
func (c *Client) SetCardPositions(cards []sessiondata.CardPosition) error {
	return c.ack("CardPositions", CardPositionsRequest{Cards: cards})
}

// GameStart marks the game start. A zero time lets the server stamp it.
func (c *Client) GameStart(at time.Time) error {
	return c.ack("GameStart", gameEvent(at))
}

// GameEnd marks the game end. A zero time lets the server stamp it.
func (c *Client) GameEnd(at time.Time) error {
	return c.ack("GameEnd", gameEvent(at))
}

func gameEvent(at time.Time) GameEventRequest {
	if at.IsZero() {
		return GameEventRequest{}
	}
	return GameEventRequest{Timestamp: at.UnixMilli()}
}

// UpdateGameMetadata merges counters into the game metadata.
func (c *Client) UpdateGameMetadata(update sessiondata.GameMetadataUpdate) error {
	return c.ack("GameMetadata", GameMetadataRequest{Update: update})
}

// Click dispatches one pointer event and returns the new click count.
func (c *Client) Click(x, y float64, path []clicktrack.Element) (int, error) {
	var resp ClickResponse
	if err := c.call("Click", ClickRequest{ClientX: x, ClientY: y, Path: path}, &resp); err != nil {
		return 0, err
	}
	return resp.ClickCount, nil
}

// Fullscreen reports a display change.
func (c *Client) Fullscreen(active bool) error {
	return c.ack("Fullscreen", FullscreenRequest{Active: active})
}

// Pause pauses both recorders.
func (c *Client) Pause() error {
	return c.ack("Pause", Empty{})
}

// Resume resumes both recorders.
func (c *Client) Resume() error {
	return c.ack("Resume", Empty{})
}

// Stop ends the recording run.
func (c *Client) Stop() error {
	return c.ack("Stop", Empty{})
}
