package dispatcher

import (
	"context"

	"github.com/garyjia/procurement/internal/domain/event"
)

// Handler reacts to a document event after its transaction has committed,
// e.g. delivering an approval notice to one sink
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler. Name identifies the sink
// ("inbox", "lark") in logs when delivery of a document event fails.
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
