package irlogger

import (
	"errors"
	"regexp"
)

// Reasons reported when a line cannot be parsed. The text is part of the
// diagnostic records that downstream tooling matches on.
var (
	ErrNoMatch      = errors.New("Failed to match regex.")
	ErrUnknownLevel = errors.New("Failed to parse IRLogger log level value.")
)

// linePattern matches `SEVERITY [LOCATION] @ TIMESTAMPs :MESSAGE`, e.g.
//
//	ERROR [IRDeviceCreate.cpp:47] @ 0.00513013s :No device found!
var linePattern = regexp.MustCompile(`^(\S+) \[([\w.:]*)\] @ ([\d.]+s) :(.*)$`)

// irloggerLevels maps the tokens the IRLogger writes to severities.
var irloggerLevels = map[string]Severity{
	"DEBUG":   Debug,
	"INFO":    Info,
	"WARNING": Warn,
	"ERROR":   Error,
}

// Record is a single parsed log record.
type Record struct {
	Severity Severity
	Message  string
}

// ParseError describes a line that could not be turned into a Record.
type ParseError struct {
	// Line is the raw line, without its terminator.
	Line string

	// Err is ErrNoMatch or ErrUnknownLevel.
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses one IRLogger line (without its trailing newline).
//
//	ParseLine("ERROR [IRDeviceCreate.cpp:47] @ 0.00513013s :No device found!")
//	// Record{Severity: Error, Message: "[IRDeviceCreate.cpp:47] No device found!"}
func ParseLine(line string) (Record, error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Record{}, &ParseError{Line: line, Err: ErrNoMatch}
	}

	level, location, message := m[1], m[2], m[4]

	severity, ok := irloggerLevels[level]
	if !ok {
		return Record{}, &ParseError{Line: line, Err: ErrUnknownLevel}
	}

	return Record{
		Severity: severity,
		Message:  "[" + location + "] " + message,
	}, nil
}
