// Package systemd generates and installs the systemd user unit that runs
// crate in watch mode.
package systemd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// unitTemplate is the systemd user unit. ExecStart points at the installed
// binary so the unit keeps working after the config changes.
const unitTemplate = `[Unit]
Description=crate library watcher
After=default.target

[Service]
ExecStart={{.ExecStart}} watch
Restart=on-failure

[Install]
WantedBy=default.target
`

// UnitPath returns where the user unit is installed.
func UnitPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "systemd", "user", "crate.service"), nil
}

// Install writes the unit file for the current executable and returns its
// path. Existing units are overwritten.
func Install() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}

	dest, err := UnitPath()
	if err != nil {
		return "", err
	}

	unit, err := Render(exe)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create unit directory: %w", err)
	}

	if err := os.WriteFile(dest, unit, 0o644); err != nil {
		return "", fmt.Errorf("failed to write unit file: %w", err)
	}

	return dest, nil
}

// Render produces the unit file contents for the given binary path.
func Render(execStart string) ([]byte, error) {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ ExecStart string }{ExecStart: execStart}); err != nil {
		return nil, fmt.Errorf("failed to render unit template: %w", err)
	}
	return buf.Bytes(), nil
}
