package services

import (
	"errors"
	"fmt"
)

var (
	ErrNoNodeAvailable = errors.New("no data node is connected")
	ErrMatchNotFound   = errors.New("match not found")
	ErrNodeNotFound    = errors.New("data node not found")
	ErrInvalidStatus   = errors.New("invalid match status")
	ErrInvalidSection  = errors.New("invalid section")
	ErrNodeHasMatches  = errors.New("data node still hosts matches")
)

// WarnValidationSkipped is surfaced to the caller when the hub could not read
// the match content before a write, so quota and order checks did not run.
// The node still enforces both at write time.
const WarnValidationSkipped = "không đọc được nội dung trận đấu, bỏ qua kiểm tra trước khi ghi"

// NodeUnreachableError marks a failure to reach the owning node: not
// connected, request timeout, or the connection died mid-call.
type NodeUnreachableError struct {
	NodeID int64
	Cause  error
}

func (e *NodeUnreachableError) Error() string {
	return fmt.Sprintf("data node %d unreachable: %s", e.NodeID, e.Cause.Error())
}

func (e *NodeUnreachableError) Unwrap() error { return e.Cause }

// NodeRejectedError means the node was reached but refused the operation.
type NodeRejectedError struct {
	NodeID int64
	Reason string
}

func (e *NodeRejectedError) Error() string {
	return fmt.Sprintf("data node %d rejected the operation: %s", e.NodeID, e.Reason)
}

type QuotaExceededError struct {
	Section      string
	PlayerIndex  *int
	CurrentCount int
	MaxCount     int
}

func (e *QuotaExceededError) Error() string {
	if e.PlayerIndex != nil {
		return fmt.Sprintf("section %s already has %d/%d questions for player %d",
			e.Section, e.CurrentCount, e.MaxCount, *e.PlayerIndex)
	}
	return fmt.Sprintf("section %s already has %d/%d questions", e.Section, e.CurrentCount, e.MaxCount)
}

type DuplicateOrderError struct {
	Section        string
	PlayerIndex    *int
	Order          int
	ExistingOrders []int
}

func (e *DuplicateOrderError) Error() string {
	if e.PlayerIndex != nil {
		return fmt.Sprintf("order %d is already taken in section %s for player %d (existing: %v)",
			e.Order, e.Section, *e.PlayerIndex, e.ExistingOrders)
	}
	return fmt.Sprintf("order %d is already taken in section %s (existing: %v)", e.Order, e.Section, e.ExistingOrders)
}
