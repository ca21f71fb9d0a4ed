package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/pkg/config"
	"github.com/ccollicutt/irlog/pkg/irlogger"
)

// sampleLines is how many lines of a file source the line format check parses.
const sampleLines = 10

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Source path existence and type
- Buffer size against the longest line in a file source
- IRLogger line format of a file source
- Webhook configuration (and connectivity with -v)

Example:
  irlog diagnose config.yaml
  irlog diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, out io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(out, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(out, results, opts)
		return nil
	}

	// 3. Check the source
	path, result := checkSource(cfg)
	results = append(results, result)

	// 4. Check a file source's contents against the buffer and line format
	if result.Status == "ok" && cfg.Source.Type == config.SourceFile && !cfg.Source.Dated {
		results = append(results, checkFileContents(path, cfg.BufferBytes(), opts)...)
	}

	// 5. Check webhooks configuration
	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	printDiagnostics(out, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{"Add at least a source section, e.g. source:\n  type: fifo"}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Source: %s", cfg.Source.Type),
		fmt.Sprintf("Buffer size: %s", humanize.IBytes(uint64(cfg.BufferBytes()))),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

// checkSource returns the resolved source path and whether it is usable.
func checkSource(cfg *config.Config) (string, DiagnosticResult) {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Source: %s", cfg.Source.Type),
	}

	if cfg.Source.Type == config.SourceStdin {
		result.Status = "ok"
		result.Message = "Reads standard input"
		return "", result
	}

	path, err := cfg.ResolveSourcePath()
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot resolve source path: %v", err)
		return "", result
	}
	result.Details = []string{fmt.Sprintf("Path: %s", path)}

	if cfg.Source.Dated {
		dir := filepath.Dir(path)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			result.Status = "error"
			result.Message = fmt.Sprintf("Directory for dated files does not exist: %s", dir)
			return path, result
		}
		result.Status = "ok"
		result.Message = "Dated file prefix, resolved when the capture starts"
		return path, result
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if _, dirErr := os.Stat(filepath.Dir(path)); dirErr != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Parent directory does not exist: %s", filepath.Dir(path))
			result.Suggests = []string{"Create the directory, the source is watched or created inside it"}
			return path, result
		}
		result.Status = "warning"
		result.Message = "Source does not exist yet"
		if cfg.Source.Type == config.SourceFIFO {
			result.Suggests = []string{"irlog follow creates the FIFO when it starts"}
		} else {
			result.Suggests = []string{"irlog follow waits for the file to be created"}
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access source: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case cfg.Source.Type == config.SourceFIFO && info.Mode()&os.ModeNamedPipe == 0:
		result.Status = "error"
		result.Message = "Path exists and is not a FIFO"
		result.Suggests = []string{"Remove the file or choose another path, irlog will create the FIFO"}
	case cfg.Source.Type == config.SourceFile && info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
	case cfg.Source.Type == config.SourceFile:
		result.Status = "ok"
		result.Message = fmt.Sprintf("File exists (%s)", humanize.IBytes(uint64(info.Size())))
	default:
		result.Status = "ok"
		result.Message = "FIFO exists"
	}

	return path, result
}

// checkFileContents compares the longest line with the buffer size and parses
// the first lines of the file.
func checkFileContents(path string, bufferSize int, opts *DiagnoseOptions) []DiagnosticResult {
	bufferResult := DiagnosticResult{
		Check: "Buffer Size",
	}
	formatResult := DiagnosticResult{
		Check: fmt.Sprintf("Line Format: %s", filepath.Base(path)),
	}

	f, err := os.Open(path) // #nosec G304 -- source path from config
	if err != nil {
		bufferResult.Status = "warning"
		bufferResult.Message = fmt.Sprintf("Cannot read file: %v", err)
		return []DiagnosticResult{bufferResult}
	}
	defer f.Close()

	var (
		longest, current int
		samples          []string
		line             []byte
	)
	reader := bufio.NewReader(f)
	for {
		chunk, err := reader.ReadSlice('\n')
		current += len(chunk)
		if len(samples) < sampleLines && len(line) < bufferSize {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if current > 0 {
			// the terminator occupies the buffer too
			longest = max(longest, current)
			if len(samples) < sampleLines {
				samples = append(samples, strings.TrimSuffix(string(line), "\n"))
			}
		}
		current, line = 0, line[:0]
		if err != nil {
			break
		}
	}

	if longest > bufferSize {
		bufferResult.Status = "warning"
		bufferResult.Message = fmt.Sprintf("Longest line (%s) exceeds the buffer (%s) and will overflow",
			humanize.IBytes(uint64(longest)), humanize.IBytes(uint64(bufferSize)))
		bufferResult.Suggests = []string{fmt.Sprintf("Raise buffer_size to at least %s", humanize.IBytes(uint64(longest)))}
	} else {
		bufferResult.Status = "ok"
		bufferResult.Message = fmt.Sprintf("Longest line (%s) fits the buffer (%s)",
			humanize.IBytes(uint64(longest)), humanize.IBytes(uint64(bufferSize)))
	}

	if len(samples) == 0 {
		formatResult.Status = "warning"
		formatResult.Message = "File is empty, nothing to check"
		return []DiagnosticResult{bufferResult, formatResult}
	}

	matched := 0
	var sampleMatch, sampleFail string
	var failReason error
	for _, s := range samples {
		if _, err := irlogger.ParseLine(s); err == nil {
			matched++
			if sampleMatch == "" {
				sampleMatch = s
			}
		} else if sampleFail == "" {
			sampleFail, failReason = s, err
		}
	}

	switch {
	case matched == 0:
		formatResult.Status = "error"
		formatResult.Message = "No sample lines are IRLogger lines"
		formatResult.Suggests = []string{
			"Lines must look like: SEVERITY [file.cpp:42] @ 0.5s :message",
		}
	case matched < len(samples):
		formatResult.Status = "warning"
		formatResult.Message = fmt.Sprintf("%d/%d sample lines parse", matched, len(samples))
	default:
		formatResult.Status = "ok"
		formatResult.Message = fmt.Sprintf("%d/%d sample lines parse", matched, len(samples))
		if opts.Verbose {
			formatResult.Details = []string{"Sample match:", truncate(sampleMatch, 80)}
		}
	}
	if sampleFail != "" {
		formatResult.Details = []string{
			fmt.Sprintf("Sample line that didn't parse (%v):", failReason),
			truncate(sampleFail, 80),
		}
	}

	return []DiagnosticResult{bufferResult, formatResult}
}

func printDiagnostics(out io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(out, "=== irlog Configuration Diagnostics ===")
	fmt.Fprintln(out)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(out, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(out, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(out, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(out, "      Hint: %s\n", s)
		}

		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "---")
	fmt.Fprintf(out, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(out, "\nFix the errors above before capturing.")
	} else if warnCount > 0 {
		fmt.Fprintln(out, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(out, "\nConfiguration looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	// URLs and triggers were validated by config.Load
	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		if unset := wh.UnsetTokenVars(); len(unset) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(unset))
			for _, name := range unset {
				result.Details = append(result.Details, fmt.Sprintf("Token references unset env var: %s", name))
			}
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)

		if opts.Verbose {
			connectivity := checkWebhookConnectivity(ctx, wh)
			connectivity.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, connectivity)
		}
	}

	return results
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

// truncate shortens s to at most maxLen bytes, cutting on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
