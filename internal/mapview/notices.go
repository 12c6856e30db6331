package mapview

import (
	"context"
	"log/slog"
	"time"
)

// Notice is a message the user should see, such as a failed save or an address that was not found.
type Notice struct {
	Message string
	Err     error
	At      time.Time
}

// Notices is a buffered sink of user-facing notices. When nobody drains it, new notices are
// dropped and logged.
type Notices struct {
	log *slog.Logger
	ch  chan Notice
}

// NewNotices creates a sink holding up to size undelivered notices.
func NewNotices(log *slog.Logger, size int) *Notices {
	return &Notices{log: log, ch: make(chan Notice, size)}
}

// Notify queues a notice.
func (n *Notices) Notify(ctx context.Context, message string, err error) {
	select {
	case n.ch <- Notice{Message: message, Err: err, At: time.Now()}:
	default:
		n.log.WarnContext(ctx, "Notice dropped", "message", message, "error", err)
	}
}

// C returns the channel notices are delivered on.
func (n *Notices) C() <-chan Notice {
	return n.ch
}
