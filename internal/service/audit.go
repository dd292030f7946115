package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/pkg/middleware/requestid"
)

type auditLogWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// writeAudit records a mutation. Failures are logged and never fail the caller.
func writeAudit(ctx context.Context, w auditLogWriter, logger *zap.Logger, actor models.Actor, action, resource, resourceID string, values interface{}) {
	if w == nil {
		return
	}
	var payload []byte
	if values != nil {
		payload, _ = json.Marshal(values)
	}
	entry := &models.AuditLog{
		UserID:    optionalString(actor.UserID),
		Action:    action,
		Resource:  resource,
		NewValues: payload,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := w.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", resourceID),
			zap.String("request_id", requestid.FromContext(ctx)), zap.Error(err))
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
