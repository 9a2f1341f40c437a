package events

import (
	"context"
	"errors"
)

// Inline runs the handler on the caller's goroutine, so handler failures
// surface to the caller as warnings. Follow-up events run in the same call
// and a failed follow-up never stops its siblings.
type Inline struct {
	handler Handler
}

func NewInline(h Handler) *Inline {
	return &Inline{handler: h}
}

func (p *Inline) Publish(ctx context.Context, e Event) error {
	var errs []error
	pending := []Event{e}
	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]

		followUps, err := p.handler.Handle(ctx, next)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pending = append(pending, followUps...)
	}
	return errors.Join(errs...)
}
