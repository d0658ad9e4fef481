package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType represents the type of security event
type EventType string

const (
	EventUploadRejected     EventType = "upload_rejected"
	EventMalwareDetected    EventType = "malware_detected"
	EventScannerFailed      EventType = "scanner_failed"
	EventRateLimitTriggered EventType = "rate_limit_triggered"
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventAdminStreamOpened  EventType = "admin_stream_opened"
)

// SecurityEvent represents a security-related event to be logged
type SecurityEvent struct {
	Timestamp    time.Time              `json:"timestamp"`
	Service      string                 `json:"service"`
	Environment  string                 `json:"env"`
	Level        string                 `json:"level"`
	Event        EventType              `json:"event"`
	SubjectType  string                 `json:"subject_type,omitempty"`  // "email", "ip", "session"
	SubjectValue string                 `json:"subject_value,omitempty"` // Masked or hashed for PII
	IP           string                 `json:"ip,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	RequestID    string                 `json:"request_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// SecurityLogger writes security events through zap, separate from the
// application's slog stream.
type SecurityLogger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

var defaultLogger *SecurityLogger

// InitSecurityLogger initializes the security logger with Zap
func InitSecurityLogger(serviceName, environment string) *SecurityLogger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	sl := NewSecurityLogger(logger, serviceName, environment)
	defaultLogger = sl
	return sl
}

// NewSecurityLogger wraps an existing zap logger; tests pass zap.NewNop or
// an observer core.
func NewSecurityLogger(logger *zap.Logger, serviceName, environment string) *SecurityLogger {
	return &SecurityLogger{
		zapLogger:   logger,
		serviceName: serviceName,
		environment: environment,
	}
}

// DefaultLogger returns the default security logger instance
func DefaultLogger() *SecurityLogger {
	if defaultLogger == nil {
		return InitSecurityLogger("recruitment-intake", getEnvironment())
	}
	return defaultLogger
}

// Log logs a security event
func (sl *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	if sl == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Service = sl.serviceName
	event.Environment = sl.environment

	severity := GetSeverity(event.Event)
	level := severity.level()
	event.Level = level.String()

	fields := []zap.Field{
		zap.String("service", event.Service),
		zap.String("env", event.Environment),
		zap.String("event", string(event.Event)),
		zap.String("severity", string(severity)),
	}
	if event.SubjectType != "" {
		fields = append(fields, zap.String("subject_type", event.SubjectType))
	}
	if event.SubjectValue != "" {
		fields = append(fields, zap.String("subject_value", event.SubjectValue))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	sl.zapLogger.Log(level, string(event.Event), fields...)
}

// LogUploadRejected records a resume that failed a content check (spoofed
// type, malware) rather than a plain format rule.
func (sl *SecurityLogger) LogUploadRejected(ctx context.Context, email, ip, fileName, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventUploadRejected,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           ip,
		Details:      map[string]interface{}{"file_hash": HashValue(fileName), "reason": reason},
	})
}

func (sl *SecurityLogger) LogMalwareDetected(ctx context.Context, email, ip, scanner, threat string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventMalwareDetected,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           ip,
		Details:      map[string]interface{}{"scanner": scanner, "threat": threat},
	})
}

func (sl *SecurityLogger) LogScannerFailed(ctx context.Context, scanner string, err error) {
	sl.Log(ctx, SecurityEvent{
		Event:   EventScannerFailed,
		Details: map[string]interface{}{"scanner": scanner, "error": err.Error()},
	})
}

// LogRateLimitTriggered logs when rate limiting is triggered
func (sl *SecurityLogger) LogRateLimitTriggered(ctx context.Context, ip, email, endpoint string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		Details:      map[string]interface{}{"endpoint": endpoint, "email": MaskEmail(email)},
	})
}

func (sl *SecurityLogger) LogUnauthorizedAccess(ctx context.Context, ip, userAgent, requestID, path, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:     EventUnauthorizedAccess,
		IP:        ip,
		UserAgent: userAgent,
		RequestID: requestID,
		Details:   map[string]interface{}{"path": path, "reason": reason},
	})
}

func (sl *SecurityLogger) LogAdminStreamOpened(ctx context.Context, adminID, ip, requestID string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventAdminStreamOpened,
		SubjectType:  "admin",
		SubjectValue: HashValue(adminID),
		IP:           ip,
		RequestID:    requestID,
	})
}

// Sync flushes any buffered log entries
func (sl *SecurityLogger) Sync() error {
	return sl.zapLogger.Sync()
}

// MaskEmail masks an email for logging (e.g., "j***@example.com")
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	atIndex := strings.IndexByte(email, '@')
	if atIndex <= 1 {
		return "***" + email[1:]
	}
	return email[:1] + "***" + email[atIndex:]
}

// HashValue creates a SHA256 hash of a value (for logging without PII)
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8]) // First 16 chars of hex
}

func getEnvironment() string {
	if os.Getenv("GIN_MODE") == "release" {
		return "production"
	}
	return "development"
}
