package jwtAuth

import (
	"context"
	"errors"
)

const (
	auditEventAccountRegister     = "account_register"
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventSessionIssued       = "session_issued"
	auditEventSessionRevoked      = "session_revoked"
	auditEventSessionRevokedAll   = "session_revoked_all"
	auditEventPayloadRejected     = "session_payload_rejected"
	auditEventConfirmationSent    = "confirmation_sent"
	auditEventConfirmationConfirm = "confirmation_confirm"
	auditEventAccountUpdate       = "account_update"
	auditEventCredentialChange    = "credential_change"
	auditEventEmailChange         = "email_change"
	auditEventRecoveryRequest     = "recovery_request"
	auditEventRecoveryReset       = "recovery_reset"
)

// AuditErrorCode is the stable, non-sensitive classification of an error
// written into AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidPayload     AuditErrorCode = "invalid_payload"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnconfirmed        AuditErrorCode = "account_unconfirmed"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrSessionsDisabled   AuditErrorCode = "sessions_disabled"
	auditErrNotification       AuditErrorCode = "notification_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
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
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Flow:      auditEventFlow(eventType),
		AccountID: accountID,
		RequestID: requestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidPayload):
		return auditErrInvalidPayload
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountUnconfirmed):
		return auditErrUnconfirmed
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrSessionTokensDisabled),
		errors.Is(err, ErrBearerDisabled):
		return auditErrSessionsDisabled
	case errors.Is(err, ErrNotificationFailed):
		return auditErrNotification
	case errors.Is(err, ErrPersistenceFailed):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
