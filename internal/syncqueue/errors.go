package syncqueue

import (
	"errors"
	"fmt"
)

var (
	ErrExecutorClosed = errors.New("sync executor closed")
	ErrQueueFull      = errors.New("sync queue full")
)

// QueueFullError reports which shard rejected a submission.
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("sync queue shard %d full (%d/%d)", e.Shard, e.Length, e.Capacity)
}

func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }
