package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/logging"
	"google.golang.org/api/option"
)

// componentLabel tags every log entry so the bot's logs are filterable
// alongside other workloads in the same project.
const componentLabel = "labelbot"

// Logger is the bot's structured logging surface.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warning(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Close() error
}

// CloudLogger ships entries to Cloud Logging.
type CloudLogger struct {
	client *logging.Client
	logger *logging.Logger
}

// NewCloudLogger creates a logger that writes to the given log ID in the
// project's Cloud Logging.
func NewCloudLogger(ctx context.Context, projectID, logID string, opts ...option.ClientOption) (*CloudLogger, error) {
	client, err := logging.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create logging client: %w", err)
	}

	logger := client.Logger(logID, logging.CommonLabels(map[string]string{
		"component": componentLabel,
	}))
	return &CloudLogger{client: client, logger: logger}, nil
}

func (cl *CloudLogger) log(severity logging.Severity, msg string, fields map[string]interface{}) {
	payload := map[string]interface{}{
		"message": Redact(msg),
	}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = Redact(s)
		}
		payload[k] = v
	}
	cl.logger.Log(logging.Entry{
		Severity: severity,
		Payload:  payload,
	})
}

// Info logs at INFO severity.
func (cl *CloudLogger) Info(msg string, fields map[string]interface{}) {
	cl.log(logging.Info, msg, fields)
}

// Warning logs at WARNING severity.
func (cl *CloudLogger) Warning(msg string, fields map[string]interface{}) {
	cl.log(logging.Warning, msg, fields)
}

// Error logs at ERROR severity.
func (cl *CloudLogger) Error(msg string, fields map[string]interface{}) {
	cl.log(logging.Error, msg, fields)
}

// Close flushes buffered entries and releases the client.
func (cl *CloudLogger) Close() error {
	if err := cl.logger.Flush(); err != nil {
		return err
	}
	return cl.client.Close()
}

// logLine is the JSON shape the fallback logger writes. The field names
// match what the Cloud Logging agent parses from stderr, so running outside
// GCP still produces ingestible output.
type logLine struct {
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// FallbackLogger writes structured JSON lines to a local writer. Used when
// the metadata server is unreachable (local runs, CI).
type FallbackLogger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewFallbackLogger creates a logger writing JSON lines to w.
func NewFallbackLogger(w io.Writer) *FallbackLogger {
	return &FallbackLogger{writer: w}
}

func (fl *FallbackLogger) log(severity, msg string, fields map[string]interface{}) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	sanitized := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = Redact(s)
		}
		sanitized[k] = v
	}
	if len(sanitized) == 0 {
		sanitized = nil
	}

	line := logLine{
		Severity:  severity,
		Message:   Redact(msg),
		Timestamp: time.Now().UTC(),
		Component: componentLabel,
		Fields:    sanitized,
	}
	data, err := json.Marshal(line)
	if err != nil {
		fmt.Fprintf(fl.writer, `{"severity":"ERROR","message":"marshal log entry: %v"}`+"\n", err)
		return
	}
	fmt.Fprintf(fl.writer, "%s\n", data)
}

// Info logs at INFO severity.
func (fl *FallbackLogger) Info(msg string, fields map[string]interface{}) {
	fl.log("INFO", msg, fields)
}

// Warning logs at WARNING severity.
func (fl *FallbackLogger) Warning(msg string, fields map[string]interface{}) {
	fl.log("WARNING", msg, fields)
}

// Error logs at ERROR severity.
func (fl *FallbackLogger) Error(msg string, fields map[string]interface{}) {
	fl.log("ERROR", msg, fields)
}

// Close is a no-op; writes are synchronous.
func (fl *FallbackLogger) Close() error {
	return nil
}

// NewLogger picks Cloud Logging when running on GCP with a known project,
// and the local JSON fallback otherwise.
func NewLogger(ctx context.Context, projectID, logID string, opts ...option.ClientOption) Logger {
	if projectID != "" && IsRunningOnGCP() {
		if cl, err := NewCloudLogger(ctx, projectID, logID, opts...); err == nil {
			return cl
		}
	}
	return NewFallbackLogger(os.Stderr)
}

var _ Logger = (*CloudLogger)(nil)
var _ Logger = (*FallbackLogger)(nil)

// tokenPrefixes are credential markers that must never reach a log sink.
var tokenPrefixes = []string{"ghp_", "ghs_", "gho_", "ghu_", "github_pat_"}

// Redact replaces GitHub tokens and bearer values embedded in s.
func Redact(s string) string {
	for _, prefix := range tokenPrefixes {
		for {
			i := strings.Index(s, prefix)
			if i < 0 {
				break
			}
			end := i
			for end < len(s) && !isTokenBoundary(s[end]) {
				end++
			}
			s = s[:i] + "[REDACTED]" + s[end:]
		}
	}
	if i := strings.Index(s, "Bearer "); i >= 0 {
		end := i + len("Bearer ")
		for end < len(s) && !isTokenBoundary(s[end]) {
			end++
		}
		s = s[:i] + "Bearer [REDACTED]" + s[end:]
	}
	return s
}

func isTokenBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '"' || c == '\'' || c == ','
}
