package progress

import "context"

// Sink consumes progress events. Implementations must honor ctx deadlines and
// tolerate repeated Close calls; the Hub invokes them from one goroutine.
type Sink interface {
	Consume(ctx context.Context, evt Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so the
// engine stays agnostic about how events are buffered or reported.
type Emitter interface {
	Emit(evt Event)
}
