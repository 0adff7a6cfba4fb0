// Package audit logs security-relevant request events in a structured form
// a SIEM can filter on.
package audit

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionProbe is logged when libinjection flags a request parameter.
	EventSQLInjectionProbe SecurityEventType = "sql_injection_probe"
)

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionProbeDetails describes the flagged parameter.
type InjectionProbeDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"`
}

// maxLoggedValue bounds how much of a flagged value reaches the logs.
const maxLoggedValue = 256

// SecurityAuditor writes security events under the "security_audit" logger name.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

// LogInjectionProbe records a request parameter that looks like SQL injection.
// Queries are parameterized, so this is a warning, not a critical event.
func (a *SecurityAuditor) LogInjectionProbe(method, path, clientIP string, details InjectionProbeDetails) {
	if len(details.ParamValue) > maxLoggedValue {
		details.ParamValue = details.ParamValue[:maxLoggedValue]
	}

	event := SecurityEvent{
		Timestamp: a.now().UTC(),
		EventType: EventSQLInjectionProbe,
		Method:    method,
		Path:      path,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  "warning",
	}

	// Marshaling these fixed types cannot fail.
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("SQL injection probe detected",
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(EventSQLInjectionProbe)),
		zap.String("path", path),
		zap.String("param_name", details.ParamName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("severity", event.Severity),
	)
}
