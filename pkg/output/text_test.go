package output

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/ccollicutt/irlog/pkg/irlogger"
)

func createTestReport() *Report {
	return NewReport(irlogger.Stats{
		BytesPushed:  4096,
		Lines:        10,
		Parsed:       8,
		Failed:       1,
		Overflows:    1,
		BytesDropped: 1024,
	}, map[irlogger.Severity]int{
		irlogger.Warn:  2,
		irlogger.Debug: 5,
		irlogger.Error: 3,
	}, Metadata{
		Sources:    []string{"irlogger.log"},
		BufferSize: 1 << 20,
		StartedAt:  time.Date(2023, 9, 18, 21, 27, 53, 0, time.UTC),
		Duration:   1500 * time.Millisecond,
	})
}

func TestNewTextFormatter(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewTextFormatter() returned nil")
	}
	if f.Name() != "text" {
		t.Errorf("Name() = %q, want %q", f.Name(), "text")
	}
}

func TestTextFormatter_Format(t *testing.T) {
	tests := []struct {
		name string
		rec  irlogger.Record
		want string
	}{
		{"info", irlogger.Record{Severity: irlogger.Info, Message: "[a.cpp:1] hello"}, "INFO     [a.cpp:1] hello\n"},
		{"warn", irlogger.Record{Severity: irlogger.Warn, Message: "careful"}, "WARN     careful\n"},
		{"critical", irlogger.Record{Severity: irlogger.Critical, Message: "x"}, "CRITICAL x\n"},
	}

	f := NewTextFormatter(FormatOptions{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := f.Format(context.Background(), tt.rec, &buf); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Format() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestTextFormatter_Format_Timestamps(t *testing.T) {
	clk := testclock.NewClock(time.Date(2023, 9, 18, 21, 27, 53, 0, time.UTC))
	f := NewTextFormatter(FormatOptions{Timestamps: true, Clock: clk})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), irlogger.Record{Severity: irlogger.Error, Message: "boom"}, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if want := "2023-09-18T21:27:53Z ERROR    boom\n"; buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestTextFormatter_FormatReport(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})

	var buf bytes.Buffer
	if err := f.FormatReport(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("FormatReport() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"irlog Ingestion Summary",
		"Sources: irlogger.log",
		"Read: 4.0 KiB in 10 lines",
		"Parse failures: 1",
		"Overflows: 1 (1.0 KiB dropped, buffer 1.0 MiB)",
		"Result: stream had issues",
		"Duration: 1.5s",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	// severities are listed in order
	debug := strings.Index(output, "debug")
	warn := strings.Index(output, "warn")
	errIdx := strings.Index(output, "error")
	if debug < 0 || warn < debug || errIdx < warn {
		t.Errorf("severities out of order:\n%s", output)
	}
}

func TestTextFormatter_FormatReport_Clean(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	report := NewReport(irlogger.Stats{BytesPushed: 10, Lines: 1, Parsed: 1}, nil, Metadata{})

	var buf bytes.Buffer
	if err := f.FormatReport(context.Background(), report, &buf); err != nil {
		t.Fatalf("FormatReport() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Overflows: 0") {
		t.Error("output missing overflow count")
	}
	if !strings.Contains(output, "Result: clean") {
		t.Error("output missing clean result")
	}
	if strings.Contains(output, "Records by severity") {
		t.Error("output lists severities without counts")
	}
}

func TestTextFormatter_FormatReport_Quiet(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Quiet: true})

	var buf bytes.Buffer
	if err := f.FormatReport(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("FormatReport() error = %v", err)
	}

	if want := "irlog: 10 lines, 8 parsed, 1 failed, 1 overflows\n"; buf.String() != want {
		t.Errorf("FormatReport() = %q, want %q", buf.String(), want)
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "text", false},
		{"text", "text", false},
		{"json", "json", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		f, err := NewFormatter(tt.name, FormatOptions{})
		if (err != nil) != tt.wantErr {
			t.Errorf("NewFormatter(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && f.Name() != tt.want {
			t.Errorf("NewFormatter(%q).Name() = %q, want %q", tt.name, f.Name(), tt.want)
		}
	}
}

func TestReport_HasIssues(t *testing.T) {
	tests := []struct {
		name  string
		stats irlogger.Stats
		want  bool
	}{
		{"clean", irlogger.Stats{Lines: 3, Parsed: 3}, false},
		{"parse failure", irlogger.Stats{Lines: 3, Parsed: 2, Failed: 1}, true},
		{"overflow", irlogger.Stats{Overflows: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewReport(tt.stats, nil, Metadata{}).HasIssues(); got != tt.want {
				t.Errorf("HasIssues() = %v, want %v", got, tt.want)
			}
		})
	}
}
