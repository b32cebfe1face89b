package jwtAuth

// Flow names the part of the account lifecycle a metric or audit event
// belongs to. Exporters attach it as a label so dashboards can split session
// traffic from confirmation and recovery traffic.
type Flow string

const (
	FlowAccount      Flow = "account"
	FlowLogin        Flow = "login"
	FlowSession      Flow = "session"
	FlowConfirmation Flow = "confirmation"
	FlowCredential   Flow = "credential"
	FlowRecovery     Flow = "recovery"
	// FlowDelivery covers repository and notifier failures of any flow.
	FlowDelivery Flow = "delivery"
)

var metricFlows = [metricIDCount]Flow{
	MetricRegisterSuccess:          FlowAccount,
	MetricRegisterDuplicate:        FlowAccount,
	MetricLoginSuccess:             FlowLogin,
	MetricLoginFailure:             FlowLogin,
	MetricSessionIssued:            FlowSession,
	MetricSessionRevoked:           FlowSession,
	MetricSessionRevokedAll:        FlowSession,
	MetricSessionConflictRetry:     FlowSession,
	MetricPayloadResolveFailure:    FlowSession,
	MetricConfirmationSent:         FlowConfirmation,
	MetricConfirmationRejected:     FlowConfirmation,
	MetricConfirmationSuccess:      FlowConfirmation,
	MetricConfirmationExpired:      FlowConfirmation,
	MetricEmailChangeIntercepted:   FlowConfirmation,
	MetricAccountUpdated:           FlowAccount,
	MetricCredentialChangeSuccess:  FlowCredential,
	MetricCredentialChangeRejected: FlowCredential,
	MetricRecoverySent:             FlowRecovery,
	MetricRecoveryRejected:         FlowRecovery,
	MetricRecoveryResetSuccess:     FlowRecovery,
	MetricRecoveryResetFailure:     FlowRecovery,
	MetricPersistenceFailure:       FlowDelivery,
	MetricNotificationFailure:      FlowDelivery,
	MetricResolveLatency:           FlowSession,
}

// Flow reports the lifecycle flow id is counted under.
func (id MetricID) Flow() Flow {
	if int(id) >= len(metricFlows) {
		return ""
	}
	return metricFlows[id]
}

var auditEventFlows = map[string]Flow{
	auditEventAccountRegister:     FlowAccount,
	auditEventAccountUpdate:       FlowAccount,
	auditEventLoginSuccess:        FlowLogin,
	auditEventLoginFailure:        FlowLogin,
	auditEventSessionIssued:       FlowSession,
	auditEventSessionRevoked:      FlowSession,
	auditEventSessionRevokedAll:   FlowSession,
	auditEventPayloadRejected:     FlowSession,
	auditEventConfirmationSent:    FlowConfirmation,
	auditEventConfirmationConfirm: FlowConfirmation,
	auditEventEmailChange:         FlowConfirmation,
	auditEventCredentialChange:    FlowCredential,
	auditEventRecoveryRequest:     FlowRecovery,
	auditEventRecoveryReset:       FlowRecovery,
}

func auditEventFlow(eventType string) Flow {
	return auditEventFlows[eventType]
}
