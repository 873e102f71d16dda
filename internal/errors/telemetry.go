// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
	capture func(*sentry.Event)
}

// NewSentryReporter creates a new Sentry telemetry reporter. The Sentry client must be
// initialised separately with sentry.Init.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{
		enabled: enabled,
		capture: func(event *sentry.Event) { sentry.CaptureEvent(event) },
	}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	event := buildSentryEvent(ee)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessage(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		scope.SetLevel(event.Level)
		scope.SetFingerprint(event.Fingerprint)
		sr.capture(event)
	})

	ee.MarkReported()
}

// buildSentryEvent converts ee into a Sentry event whose exception type is a readable title.
func buildSentryEvent(ee *EnhancedError) *sentry.Event {
	title := generateErrorTitle(ee)
	message := scrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Error()))

	event := sentry.NewEvent()
	event.Timestamp = ee.GetTimestamp()
	event.Message = message
	event.Level = getErrorLevel(ee.Category)
	if level, ok := priorityLevels[ee.GetPriority()]; ok {
		event.Level = level
	}
	event.Fingerprint = []string{title, ee.GetComponent(), string(ee.Category)}
	event.Exception = []sentry.Exception{{Type: title, Value: message}}
	return event
}

// generateErrorTitle creates a title from component, category and operation context.
func generateErrorTitle(ee *EnhancedError) string {
	var parts []string

	if c := ee.GetComponent(); c != "" && c != ComponentUnknown {
		parts = append(parts, titleCase(c))
	}
	if ct := formatCategoryForTitle(ee.Category); ct != "" {
		parts = append(parts, ct)
	}
	if op, ok := ee.GetContext()["operation"].(string); ok && op != "" {
		parts = append(parts, formatOperationForTitle(op))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(parts, " ")
}

func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryAudio:
		return "Audio Error"
	case CategoryAudioDevice:
		return "Audio Device Error"
	case CategoryNative:
		return "Native Call Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryState:
		return "State Error"
	default:
		return string(category)
	}
}

func formatOperationForTitle(operation string) string {
	words := strings.Fields(strings.ReplaceAll(operation, "_", " "))
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// priorityLevels maps an explicit priority to the Sentry level it overrides.
var priorityLevels = map[string]sentry.Level{
	PriorityLow:      sentry.LevelInfo,
	PriorityMedium:   sentry.LevelWarning,
	PriorityHigh:     sentry.LevelError,
	PriorityCritical: sentry.LevelFatal,
}

// getErrorLevel returns appropriate Sentry level based on category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryValidation, CategoryState:
		return sentry.LevelWarning
	case CategoryAudioDevice, CategoryFileIO, CategoryTimeout:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var (
	reporterMu              sync.RWMutex
	globalTelemetryReporter TelemetryReporter
)

// SetTelemetryReporter sets the global telemetry reporter. nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	globalTelemetryReporter = reporter
	reporterMu.Unlock()
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	reporterMu.RLock()
	defer reporterMu.RUnlock()
	return globalTelemetryReporter
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

var (
	urlQueryRegex = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	homePathRegex = regexp.MustCompile(`(/home/|/Users/|C:\\Users\\)[^/\\\s]+`)
	apiKeyRegex   = regexp.MustCompile(`(?i)(api[_-]?key|token|dsn)[=:]\S+`)
)

// scrubMessage removes query strings, user home directories and credentials from message.
func scrubMessage(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = homePathRegex.ReplaceAllString(scrubbed, "${1}[USER]")
	return apiKeyRegex.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
}
