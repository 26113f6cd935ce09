package bus

import (
	"context"

	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
)

// Bus fans realtime messages out across server instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// Emitter publishes through a Bus; every instance's forwarder then
// broadcasts to its local hub.
type Emitter struct {
	Bus      Bus
	Fallback realtime.Emitter
}

func (e *Emitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil {
		return
	}
	if e.Bus != nil {
		if err := e.Bus.Publish(ctx, msg); err == nil {
			return
		}
	}
	if e.Fallback != nil {
		e.Fallback.Emit(ctx, msg)
	}
}
