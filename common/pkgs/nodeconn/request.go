package nodeconn

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Timeout classes. Every remote call carries one of these bounds; a hung
// node must never hang the hub.
const (
	TimeoutShort  = 10 * time.Second // folder and file-path operations
	TimeoutMedium = 15 * time.Second // question mutations
	TimeoutLong   = 30 * time.Second // match creation, reads and deletion
	TimeoutUpload = 60 * time.Second // media upload
)

type RequestOption struct {
	Timeout time.Duration
}

func WithTimeout(d time.Duration) RequestOption {
	return RequestOption{Timeout: d}
}

func pickTimeout(opts []RequestOption, def time.Duration) time.Duration {
	for _, opt := range opts {
		if opt.Timeout > 0 {
			return opt.Timeout
		}
	}
	return def
}

// Request invokes a named operation on the peer and waits for its single
// acknowledgement. It settles in exactly one of three ways: the ack arrives
// (success or RemoteError), the timeout elapses (ErrRequestTimeout), or the
// connection dies while waiting (ErrConnClosed). The disconnect listener it
// registers is removed however the call settles.
func Request[TResp any](c *Conn, msg MessageBody, timeout time.Duration) (*TResp, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	id := uuid.NewString()
	ch, err := c.addPending(id)
	if err != nil {
		return nil, err
	}
	defer c.removePending(id)

	lid := c.OnDisconnect(func(cause error) {
		select {
		case ch <- result{err: fmt.Errorf("%w: %s", ErrConnClosed, cause.Error())}:
		default:
		}
	})
	defer c.RemoveDisconnectListener(lid)

	if err := c.send(frame{ID: id, Kind: frameRequest, Op: msg.OpName(), Body: body}); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	timer := c.clock.Timer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if !r.ack.Success {
			return nil, &RemoteError{Message: r.ack.Error}
		}

		var resp TResp
		if len(r.ack.Data) > 0 {
			if err := json.Unmarshal(r.ack.Data, &resp); err != nil {
				return nil, fmt.Errorf("parsing response data: %w", err)
			}
		}
		return &resp, nil

	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrRequestTimeout, timeout)
	}
}
