// filepath: internal/audit/logger_auditor.go
package audit

import (
	"context"

	"backoffice/internal/logging"

	"github.com/sirupsen/logrus"
)

// Ensure LoggerAuditor implements Auditor
var _ Auditor = (*LoggerAuditor)(nil)

// LoggerAuditor is a simple implementation of Auditor that writes to the application log.
type LoggerAuditor struct {
	enabled bool
	logger  logrus.FieldLogger
}

// NewLoggerAuditor creates a new instance of LoggerAuditor. A nil logger
// means the process-wide one.
func NewLoggerAuditor(enabled bool, logger logrus.FieldLogger) *LoggerAuditor {
	return &LoggerAuditor{enabled: enabled, logger: logging.OrDefault(logger)}
}

// Log records an event using logrus if auditing is enabled.
func (a *LoggerAuditor) Log(ctx context.Context, action string, actor string, resource string, details map[string]interface{}) {
	if !a.enabled {
		return
	}

	// Construct fields
	fields := logrus.Fields{
		"audit_action":   action,
		"audit_actor":    actor,
		"audit_resource": resource,
	}

	// Add details flattened into the fields
	for k, v := range details {
		fields["detail."+k] = v
	}

	// Log at INFO level with a specific prefix to make it easy to grep
	a.logger.WithFields(fields).Info("AUDIT EVENT")
}
