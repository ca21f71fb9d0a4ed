package irlogger

import (
	"fmt"
	"strings"
)

// Severity classifies a log record. Values are ordered and match the numeric
// levels of Python's logging module.
type Severity int

const (
	Trace    Severity = 5
	Debug    Severity = 10
	Info     Severity = 20
	Warn     Severity = 30
	Error    Severity = 40
	Critical Severity = 50
)

var severityNames = map[Severity]string{
	Trace:    "trace",
	Debug:    "debug",
	Info:     "info",
	Warn:     "warn",
	Error:    "error",
	Critical: "critical",
}

// String returns the lower-case severity name.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity parses a severity name, ignoring case.
// "warning" and "err" are accepted as aliases.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return Trace, nil
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error", "err":
		return Error, nil
	case "critical":
		return Critical, nil
	default:
		return 0, fmt.Errorf("unknown severity %q (must be trace, debug, info, warn, error, or critical)", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
