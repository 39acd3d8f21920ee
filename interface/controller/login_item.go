package controller

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// loginItemLabel is the launchd label of the per-user agent
const loginItemLabel = "com.relaunch.agent"

var launchAgentTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": func(s string) (string, error) {
		var buf bytes.Buffer
		if err := xml.EscapeText(&buf, []byte(s)); err != nil {
			return "", err
		}
		return buf.String(), nil
	},
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{xml .Program}}</string>
		<string>--daemon</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<false/>
</dict>
</plist>
`))

// LoginItemManager starts relaunch at login through a launchd user agent
type LoginItemManager struct {
	program  string
	agentDir string
}

// NewLoginItemManager creates a manager for the running executable
func NewLoginItemManager() (*LoginItemManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &LoginItemManager{
		program:  realPath,
		agentDir: filepath.Join(homeDir, "Library", "LaunchAgents"),
	}, nil
}

func (l *LoginItemManager) plistPath() string {
	return filepath.Join(l.agentDir, loginItemLabel+".plist")
}

// IsLoginItem reports whether the agent is installed
func (l *LoginItemManager) IsLoginItem() (bool, error) {
	_, err := os.Stat(l.plistPath())
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check login item: %w", err)
}

// SetLoginItem installs or removes the agent
func (l *LoginItemManager) SetLoginItem(enabled bool) error {
	if !enabled {
		if err := os.Remove(l.plistPath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove login item: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	err := launchAgentTemplate.Execute(&buf, struct{ Label, Program string }{loginItemLabel, l.program})
	if err != nil {
		return fmt.Errorf("failed to render login item: %w", err)
	}
	if err := os.MkdirAll(l.agentDir, 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}
	if err := os.WriteFile(l.plistPath(), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write login item: %w", err)
	}
	return nil
}
