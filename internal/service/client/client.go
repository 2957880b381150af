package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"quietdrop/internal/errs"
	"quietdrop/internal/model"
	"quietdrop/internal/protocol/envelope"
)

// responseBufferSize is the most the client reads back from the server.
const responseBufferSize = 1024

var ErrUnexpectedAck = errors.New("unexpected acknowledgment")

type Client struct {
	dialer  *net.Dialer
	timeout time.Duration
}

// New returns a Client whose connections are bounded by timeout unless
// the caller's context carries an earlier deadline.
func New(timeout time.Duration) *Client {
	return &Client{
		dialer:  &net.Dialer{Timeout: timeout},
		timeout: timeout,
	}
}

// Send delivers env to the server at addr over one connection and waits
// for the acknowledgment. It makes exactly one attempt.
func (c *Client) Send(ctx context.Context, env *model.Envelope, addr string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %v: %w", addr, err, errs.ErrTransport)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := envelope.Write(conn, env); err != nil {
		return err
	}

	resp, err := io.ReadAll(io.LimitReader(conn, responseBufferSize))
	if err != nil {
		return fmt.Errorf("read acknowledgment: %v: %w", err, errs.ErrTransport)
	}
	return checkAck(resp)
}

// SendWS delivers env through the server's WebSocket endpoint, e.g.
// ws://127.0.0.1:9090/ws.
func (c *Client) SendWS(ctx context.Context, env *model.Envelope, wsURL string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := envelope.Marshal(env)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s: %w", wsURL, resp.Status, errs.ErrTransport)
		}
		return fmt.Errorf("dial %s: %v: %w", wsURL, err, errs.ErrTransport)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
		_ = conn.SetReadDeadline(dl)
	}
	conn.SetReadLimit(responseBufferSize)

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write envelope: %v: %w", err, errs.ErrTransport)
	}
	_, ack, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read acknowledgment: %v: %w", err, errs.ErrTransport)
	}
	return checkAck(ack)
}

// FetchServerKey asks the server API (e.g. http://127.0.0.1:9090) for the
// public key envelopes must be sealed to.
func FetchServerKey(ctx context.Context, apiURL string) (model.PublicKey, error) {
	u, err := url.JoinPath(apiURL, "keys", "server")
	if err != nil {
		return model.PublicKey{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.PublicKey{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return model.PublicKey{}, fmt.Errorf("get %s: %v: %w", u, err, errs.ErrTransport)
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return model.PublicKey{}, fmt.Errorf("get %s: %s: %w", u, resp.Status, errs.ErrTransport)
	}

	var out struct {
		PublicKey model.PublicKey `json:"public_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.PublicKey{}, fmt.Errorf("decode server key: %v: %w", err, errs.ErrEncoding)
	}
	return out.PublicKey, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func checkAck(resp []byte) error {
	if len(resp) == 0 {
		return fmt.Errorf("server closed without acknowledgment: %w", errs.ErrTransport)
	}
	if string(resp) != envelope.Ack {
		return fmt.Errorf("%w: %q", ErrUnexpectedAck, resp)
	}
	return nil
}
