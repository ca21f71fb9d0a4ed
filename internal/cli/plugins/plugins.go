// Package plugins provides exec-based plugin support for irlog.
// Plugins are separate binaries named irlog-<command> that are discovered
// and executed when an unknown command is invoked.
//
// This follows the same pattern used by kubectl and git for plugins.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "irlog-"

// EnvPluginDir names an extra directory searched before the defaults.
const EnvPluginDir = "IRLOG_PLUGIN_DIR"

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// Finder locates plugin binaries.
type Finder struct {
	// Dirs are searched in order.
	Dirs []string

	// UsePath also searches PATH after Dirs.
	UsePath bool
}

// DefaultFinder searches, in order:
//  1. $IRLOG_PLUGIN_DIR
//  2. Same directory as the irlog binary
//  3. ~/.irlog/plugins/
//  4. Anywhere in PATH
func DefaultFinder() *Finder {
	var dirs []string
	if dir := os.Getenv(EnvPluginDir); dir != "" {
		dirs = append(dirs, dir)
	}
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".irlog", "plugins"))
	}
	return &Finder{Dirs: dirs, UsePath: true}
}

// FindPlugin searches the default locations for irlog-<command>.
func FindPlugin(command string) (string, error) {
	return DefaultFinder().Find(command)
}

// Find returns the full path of the first irlog-<command> binary found.
func (f *Finder) Find(command string) (string, error) {
	if command == "" || strings.ContainsRune(command, filepath.Separator) {
		return "", ErrPluginNotFound
	}
	pluginName := Prefix + command

	for _, dir := range f.Dirs {
		candidate := filepath.Join(dir, pluginName)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if f.UsePath {
		if path, err := exec.LookPath(pluginName); err == nil {
			return path, nil
		}
	}

	return "", ErrPluginNotFound
}

// List returns the command names of the plugins installed in Dirs, sorted.
// PATH is not listed.
func (f *Finder) List() []string {
	seen := make(map[string]bool)
	var names []string

	for _, dir := range f.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name, ok := strings.CutPrefix(entry.Name(), Prefix)
			if !ok || name == "" || seen[name] {
				continue
			}
			if isExecutable(filepath.Join(dir, entry.Name())) {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	return names
}

// Stdio are the streams given to a plugin process.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Execute runs a plugin with the given arguments and returns its exit code.
// The plugin is killed if ctx is cancelled.
func Execute(ctx context.Context, pluginPath string, args []string, stdio Stdio) int {
	cmd := exec.CommandContext(ctx, pluginPath, args...)
	cmd.Stdin = stdio.In
	cmd.Stdout = stdio.Out
	cmd.Stderr = stdio.Err

	err := cmd.Run()
	if err != nil {
		// Extract exit code from error if available
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(stdio.Err, "Error executing plugin: %v\n", err)
		return 1
	}

	return 0
}

// FormatNotFoundError returns a helpful error message when a plugin is not found.
func FormatNotFoundError(command string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "unknown command %q for \"irlog\"\n", command)
	sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	fmt.Fprintf(&sb, "  - %s%s in $%s\n", Prefix, command, EnvPluginDir)
	fmt.Fprintf(&sb, "  - %s%s in the same directory as irlog\n", Prefix, command)
	fmt.Fprintf(&sb, "  - ~/.irlog/plugins/%s%s\n", Prefix, command)
	fmt.Fprintf(&sb, "  - %s%s anywhere in your PATH\n", Prefix, command)
	sb.WriteString("\nRun 'irlog --help' for usage.")

	return sb.String()
}

// isExecutable checks if a regular file exists with any execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
