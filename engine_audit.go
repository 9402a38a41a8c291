package woosession

import (
	"context"
	"strings"
	"time"
)

const (
	auditEventSessionRejected    = "session_rejected"
	auditEventSessionEstablished = "session_established"
	auditEventSessionThrottled   = "session_throttled"
	auditEventCartMutation       = "cart_mutation"
	auditEventCartMutationFailed = "cart_mutation_failed"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	operation string,
	success bool,
	customerID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Operation:  operation,
		CustomerID: customerID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode reuses the wire codes in lower case so audit logs and API errors line up.
func auditErrorCode(err error) string {
	return strings.ToLower(ErrorCode(err))
}
