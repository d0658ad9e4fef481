package security

import "go.uber.org/zap/zapcore"

// Severity is derived from the EventType, never supplied by the caller.
type Severity string

const (
	SeverityINFO     Severity = "INFO"
	SeverityMEDIUM   Severity = "MEDIUM"
	SeverityWARN     Severity = "WARN"
	SeverityHIGH     Severity = "HIGH"
	SeverityCRITICAL Severity = "CRITICAL"
)

var eventSeverity = map[EventType]Severity{
	EventAdminStreamOpened: SeverityINFO,

	EventScannerFailed: SeverityMEDIUM,

	EventUploadRejected:     SeverityWARN,
	EventRateLimitTriggered: SeverityWARN,

	EventUnauthorizedAccess: SeverityHIGH,

	EventMalwareDetected: SeverityCRITICAL,
}

// GetSeverity returns the severity for an event type. Unmapped types are MEDIUM.
func GetSeverity(eventType EventType) Severity {
	if severity, ok := eventSeverity[eventType]; ok {
		return severity
	}
	return SeverityMEDIUM
}

func (s Severity) level() zapcore.Level {
	switch s {
	case SeverityINFO:
		return zapcore.InfoLevel
	case SeverityHIGH, SeverityCRITICAL:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}
