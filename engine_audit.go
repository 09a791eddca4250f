package tokenslot

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenslot/internal/audit"
	"github.com/MrEthical07/tokenslot/internal/flows"
)

func (e *Engine) emitAudit(ctx context.Context, event audit.Event) {
	if e == nil || e.audit == nil {
		return
	}

	event.Timestamp = time.Now().UTC()
	if ip := clientIPFromContext(ctx); ip != "" {
		event.Metadata = withMeta(event.Metadata, "client_ip", ip)
	}
	if id := requestIDFromContext(ctx); id != "" {
		event.Metadata = withMeta(event.Metadata, "request_id", id)
	}

	e.audit.Emit(ctx, event)
}

// sessionAudit emits one event per published session id.
func (e *Engine) sessionAudit(ctx context.Context, eventType string, res flows.RotateResult) {
	if e == nil || e.audit == nil {
		return
	}
	for _, issued := range [...]struct {
		class string
		sid   string
	}{
		{res.Access.Class.String(), res.Access.SessionID},
		{res.Refresh.Class.String(), res.Refresh.SessionID},
	} {
		e.emitAudit(ctx, audit.Event{
			EventType:  eventType,
			Subject:    res.Subject,
			TokenClass: issued.class,
			SessionID:  issued.sid,
			Success:    true,
		})
	}
}

func withMeta(m map[string]string, k, v string) map[string]string {
	if m == nil {
		m = make(map[string]string, 2)
	}
	m[k] = v
	return m
}
