// Package client is the Go client for the paneld control socket. It
// correlates requests with responses and surfaces pushed events on a
// channel.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/panelkit/paneld/pkg/model"
	"github.com/panelkit/paneld/pkg/transport"
	"github.com/panelkit/paneld/pkg/wire"
)

// ErrClosed indicates the client connection has ended.
var ErrClosed = errors.New("client closed")

// Client is a connection to the daemon.
type Client struct {
	conn *transport.Conn

	mu      sync.Mutex
	pending map[string]chan *wire.Message
	closed  bool

	events    chan model.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Connect dials the daemon socket and starts the read loop.
func Connect(ctx context.Context, socketPath string) (*Client, error) {
	conn, err := transport.Dial(ctx, socketPath)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan *wire.Message),
		events:  make(chan model.Event, 64),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the pushed-event channel. The channel closes when the
// connection ends. Slow consumers drop events rather than stalling the
// read loop.
func (c *Client) Events() <-chan model.Event {
	return c.events
}

// Close tears the connection down and fails all pending requests.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(c.events)
		close(c.done)
	}()

	for {
		data, err := c.conn.Receive()
		if err != nil {
			return
		}
		msg, err := wire.Decode(data)
		if err != nil {
			continue
		}

		switch msg.Type {
		case wire.TypeEvent:
			event, err := wire.DecodePayload[model.Event](msg)
			if err != nil {
				continue
			}
			select {
			case c.events <- *event:
			default:
			}
		case wire.TypeResult, wire.TypeError:
			c.mu.Lock()
			ch, ok := c.pending[msg.CorrelationID]
			if ok {
				delete(c.pending, msg.CorrelationID)
			}
			c.mu.Unlock()
			if ok {
				ch <- msg
				close(ch)
			}
		}
	}
}

// request sends one request and waits for the correlated response.
func (c *Client) request(ctx context.Context, msgType string, payload any) (*wire.Message, error) {
	correlationID := uuid.NewString()
	req, err := wire.NewRequest(msgType, correlationID, payload)
	if err != nil {
		return nil, err
	}
	data, err := wire.Encode(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan *wire.Message, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[correlationID] = ch
	c.mu.Unlock()

	if err := c.conn.Send(data); err != nil {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if resp.Type == wire.TypeError {
			ep, err := wire.DecodePayload[wire.ErrorPayload](resp)
			if err != nil {
				return nil, fmt.Errorf("malformed error response: %w", err)
			}
			return nil, ep
		}
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// ListDevices returns the attached devices.
func (c *Client) ListDevices(ctx context.Context) ([]wire.DeviceInfo, error) {
	resp, err := c.request(ctx, wire.TypeListDevices, nil)
	if err != nil {
		return nil, err
	}
	result, err := wire.DecodePayload[wire.ListDevicesResult](resp)
	if err != nil {
		return nil, err
	}
	return result.Devices, nil
}

// GetProfile returns a device's full profile snapshot.
func (c *Client) GetProfile(ctx context.Context, deviceID string) (*wire.GetProfileResult, error) {
	resp, err := c.request(ctx, wire.TypeGetProfile, wire.GetProfileRequest{DeviceID: deviceID})
	if err != nil {
		return nil, err
	}
	return wire.DecodePayload[wire.GetProfileResult](resp)
}

// Enter pushes the folder at key onto the device's active stack.
func (c *Client) Enter(ctx context.Context, deviceID string, key uint8) error {
	_, err := c.request(ctx, wire.TypeNavigate, wire.NavigateRequest{
		DeviceID: deviceID, Op: wire.NavigateEnter, Key: key,
	})
	return err
}

// Back pops one level off the device's active stack.
func (c *Client) Back(ctx context.Context, deviceID string) error {
	_, err := c.request(ctx, wire.TypeNavigate, wire.NavigateRequest{
		DeviceID: deviceID, Op: wire.NavigateBack,
	})
	return err
}

// DropToRoot collapses the device's active stack.
func (c *Client) DropToRoot(ctx context.Context, deviceID string) error {
	_, err := c.request(ctx, wire.TypeDropToRoot, wire.DropToRootRequest{DeviceID: deviceID})
	return err
}

// BindAction appends an action binding and returns its instance id.
func (c *Client) BindAction(ctx context.Context, deviceID string, key uint8, trigger model.Trigger, kind string, params map[string]any) (string, error) {
	resp, err := c.request(ctx, wire.TypeBindAction, wire.BindActionRequest{
		DeviceID: deviceID, Key: key, Trigger: trigger, Kind: kind, Params: params,
	})
	if err != nil {
		return "", err
	}
	result, err := wire.DecodePayload[wire.BindActionResult](resp)
	if err != nil {
		return "", err
	}
	return result.InstanceID, nil
}

// Unbind removes a binding by instance id.
func (c *Client) Unbind(ctx context.Context, deviceID, instanceID string) error {
	_, err := c.request(ctx, wire.TypeUnbind, wire.UnbindRequest{
		DeviceID: deviceID, InstanceID: instanceID,
	})
	return err
}

// SetButton atomically replaces a button's bindings.
func (c *Client) SetButton(ctx context.Context, deviceID string, key uint8, bindings []wire.BindingSpec) error {
	_, err := c.request(ctx, wire.TypeSetButton, wire.SetButtonRequest{
		DeviceID: deviceID, Key: key, Bindings: bindings,
	})
	return err
}

// PressButton simulates a press and release on a button.
func (c *Client) PressButton(ctx context.Context, deviceID string, key uint8) (*wire.PressButtonResult, error) {
	resp, err := c.request(ctx, wire.TypePressButton, wire.PressButtonRequest{
		DeviceID: deviceID, Key: key,
	})
	if err != nil {
		return nil, err
	}
	return wire.DecodePayload[wire.PressButtonResult](resp)
}

// SetBrightness sets a device's backlight brightness (0-100).
func (c *Client) SetBrightness(ctx context.Context, deviceID string, percent uint8) error {
	_, err := c.request(ctx, wire.TypeSetBrightness, wire.SetBrightnessRequest{
		DeviceID: deviceID, Brightness: percent,
	})
	return err
}

// Subscribe registers for events on a topic ("all" or "device:<id>").
func (c *Client) Subscribe(ctx context.Context, topic string) error {
	_, err := c.request(ctx, wire.TypeSubscribe, wire.SubscribeRequest{Topic: topic})
	return err
}

// Unsubscribe drops a topic subscription.
func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	_, err := c.request(ctx, wire.TypeUnsubscribe, wire.SubscribeRequest{Topic: topic})
	return err
}
