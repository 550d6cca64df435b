package nodeconn

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/olympiavn/datahub/common/pkgs/logger"
)

var (
	ErrRequestTimeout = errors.New("request timed out")
	ErrConnClosed     = errors.New("connection closed")
)

// RemoteError is an application-level rejection reported by the peer in its
// acknowledgement.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "peer rejected operation: " + e.Message
}

// RequestHandler serves one incoming request. A nil CodeMessage means
// success and resp is sent back as the ack data.
type RequestHandler func(body json.RawMessage) (any, *CodeMessage)

// EventHandler serves one incoming fire-and-forget event.
type EventHandler func(body json.RawMessage)

// Conn is one persistent hub<->node connection. Both sides can issue
// requests and emit events over it. Incoming frames are dispatched by Serve;
// outgoing requests go through Request.
type Conn struct {
	ws    *websocket.Conn
	clock clock.Clock

	writeMu sync.Mutex

	mu             sync.Mutex
	pending        map[string]chan result
	handlers       map[string]RequestHandler
	eventHandlers  map[string]EventHandler
	discListeners  map[int64]func(error)
	nextListenerID int64
	closed         bool
	closeErr       error
}

type result struct {
	ack *ack
	err error
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:            ws,
		clock:         clock.New(),
		pending:       make(map[string]chan result),
		handlers:      make(map[string]RequestHandler),
		eventHandlers: make(map[string]EventHandler),
		discListeners: make(map[int64]func(error)),
	}
}

// Handle registers the handler for a named request operation. Must be called
// before Serve.
func (c *Conn) Handle(op string, h RequestHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[op] = h
}

// HandleEvent registers the handler for a named event operation.
func (c *Conn) HandleEvent(op string, h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandlers[op] = h
}

// OnDisconnect registers a listener invoked once when the connection dies.
// If the connection is already closed the listener fires immediately. The
// returned id deregisters it via RemoveDisconnectListener.
func (c *Conn) OnDisconnect(fn func(error)) int64 {
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		fn(err)
		return 0
	}
	c.nextListenerID++
	id := c.nextListenerID
	c.discListeners[id] = fn
	c.mu.Unlock()
	return id
}

func (c *Conn) RemoveDisconnectListener(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.discListeners, id)
}

// disconnectListenerCount reports outstanding listeners. Used to verify that
// sequential requests do not leak listeners.
func (c *Conn) disconnectListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.discListeners)
}

// Serve reads and dispatches frames until the connection dies. It always
// returns a non-nil error describing why the connection ended.
func (c *Conn) Serve() error {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			err = fmt.Errorf("reading frame: %w", err)
			c.Close(err)
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.Warnf("dropping malformed frame: %s", err.Error())
			continue
		}

		switch f.Kind {
		case frameResponse:
			c.dispatchResponse(&f)
		case frameRequest:
			go c.dispatchRequest(&f)
		case frameEvent:
			go c.dispatchEvent(&f)
		default:
			logger.Warnf("dropping frame with unknown kind: %s", f.Kind)
		}
	}
}

// Close tears the connection down, failing every in-flight request and
// notifying disconnect listeners exactly once.
func (c *Conn) Close(cause error) {
	if cause == nil {
		cause = ErrConnClosed
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = cause

	listeners := c.discListeners
	c.discListeners = make(map[int64]func(error))
	c.pending = make(map[string]chan result)
	c.mu.Unlock()

	c.ws.Close()

	for _, fn := range listeners {
		fn(cause)
	}
}

// Closed reports whether the connection has been torn down.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Notify sends a fire-and-forget event to the peer.
func (c *Conn) Notify(msg MessageBody) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling event body: %w", err)
	}
	return c.send(frame{Kind: frameEvent, Op: msg.OpName(), Body: body})
}

func (c *Conn) send(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.Closed() {
		return ErrConnClosed
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) addPending(id string) (chan result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnClosed
	}
	ch := make(chan result, 1)
	c.pending[id] = ch
	return ch, nil
}

func (c *Conn) removePending(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *Conn) dispatchResponse(f *frame) {
	c.mu.Lock()
	ch, ok := c.pending[f.ID]
	delete(c.pending, f.ID)
	c.mu.Unlock()

	if !ok {
		// Late ack after a timeout already settled the call.
		return
	}

	var a ack
	if err := json.Unmarshal(f.Body, &a); err != nil {
		ch <- result{err: fmt.Errorf("parsing ack: %w", err)}
		return
	}
	ch <- result{ack: &a}
}

func (c *Conn) dispatchRequest(f *frame) {
	c.mu.Lock()
	h, ok := c.handlers[f.Op]
	c.mu.Unlock()

	var reply ack
	if !ok {
		reply = ack{Success: false, Error: "unknown operation: " + f.Op}
	} else {
		data, cm := h(f.Body)
		if cm != nil {
			reply = ack{Success: false, Error: cm.Message}
		} else {
			body, err := json.Marshal(data)
			if err != nil {
				logger.WithField("Op", f.Op).Warnf("marshaling response: %s", err.Error())
				reply = ack{Success: false, Error: "marshaling response failed"}
			} else {
				reply = ack{Success: true, Data: body}
			}
		}
	}

	body, err := json.Marshal(reply)
	if err != nil {
		logger.WithField("Op", f.Op).Warnf("marshaling ack: %s", err.Error())
		return
	}

	if err := c.send(frame{ID: f.ID, Kind: frameResponse, Body: body}); err != nil {
		logger.WithField("Op", f.Op).Warnf("sending response: %s", err.Error())
	}
}

func (c *Conn) dispatchEvent(f *frame) {
	c.mu.Lock()
	h, ok := c.eventHandlers[f.Op]
	c.mu.Unlock()

	if !ok {
		logger.Warnf("no handler for event: %s", f.Op)
		return
	}
	h(f.Body)
}
