// Package hookcmd installs and removes the goodvibes hook entries in Claude
// Code settings.json without touching hooks that belong to other tools.
package hookcmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dotcommander/goodvibes/internal/output"
)

const goodvibesCommandFallback = "goodvibes"

//nolint:gochecknoglobals // sync.Once singleton cache for hook definitions; required by the sync.Once pattern
var (
	hooksOnce  sync.Once
	hooksCache map[string]hookEntry

	// executablePath is swapped in tests, where os.Executable is the test binary.
	executablePath = os.Executable
)

type hookHandler struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

type hookEntry struct {
	Matcher string        `json:"matcher"`
	Hooks   []hookHandler `json:"hooks"`
}

// handlerSubcommands are the `goodvibes hook <sub>` handlers we own.
//
//nolint:gochecknoglobals // static set
var handlerSubcommands = map[string]bool{
	"tool-failure":  true,
	"session-start": true,
}

func claudeSettingsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "settings.json")
}

func projectClaudeSettingsPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".", ".claude", "settings.json")
	}
	return filepath.Join(wd, ".claude", "settings.json")
}

func resolveClaudeSettingsPath(projectScoped bool) string {
	if projectScoped {
		return projectClaudeSettingsPath()
	}
	return claudeSettingsPath()
}

func goodvibesExecutable() string {
	exe, err := executablePath()
	if err != nil || strings.TrimSpace(exe) == "" {
		return goodvibesCommandFallback
	}
	return exe
}

// buildHookCommand constructs the hook command string for settings.json.
// Subcommands are hardcoded string literals (not user input) so concatenation is safe.
func buildHookCommand(subcommand string) string {
	exe := goodvibesExecutable()
	if exe == goodvibesCommandFallback {
		return fmt.Sprintf("goodvibes hook %s", subcommand)
	}
	// Quote the executable path so hook commands are robust with spaces.
	return fmt.Sprintf("%q hook %s", exe, subcommand)
}

// goodvibesHooks returns the hook definitions for settings.json, keyed by event.
func goodvibesHooks() map[string]hookEntry {
	hooksOnce.Do(func() {
		hooksCache = map[string]hookEntry{
			"PostToolUseFailure": {
				Matcher: "",
				Hooks: []hookHandler{{
					Type:    "command",
					Command: buildHookCommand("tool-failure"),
					Timeout: 3000,
				}},
			},
			"SessionStart": {
				Matcher: "startup|resume",
				Hooks: []hookHandler{{
					Type:    "command",
					Command: buildHookCommand("session-start"),
					Timeout: 3000,
				}},
			},
		}
	})
	return hooksCache
}

func hookEventNames() []string {
	events := make([]string, 0, len(goodvibesHooks()))
	for name := range goodvibesHooks() {
		events = append(events, name)
	}
	sort.Strings(events)
	return events
}

func readSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: settings path is derived from home or working dir
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	return settings, nil
}

func writeSettings(path string, settings map[string]any) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// IsGoodvibesHookCommand checks if a command string is a goodvibes hook handler.
func IsGoodvibesHookCommand(command string) bool {
	parts := strings.Fields(strings.TrimSpace(command))
	if len(parts) < 3 {
		return false
	}

	execToken := strings.Trim(parts[0], "\"'")
	if filepath.Base(execToken) != "goodvibes" {
		return false
	}
	if parts[1] != "hook" {
		return false
	}
	return handlerSubcommands[parts[2]]
}

// isGoodvibesEntry reports whether a settings.json hook entry runs one of our handlers.
func isGoodvibesEntry(entry any) bool {
	entryMap, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	hooks, ok := entryMap["hooks"].([]any)
	if !ok {
		return false
	}
	for _, h := range hooks {
		hMap, ok := h.(map[string]any)
		if !ok {
			continue
		}
		cmd, _ := hMap["command"].(string)
		if IsGoodvibesHookCommand(cmd) {
			return true
		}
	}
	return false
}

// HasGoodvibesHook checks if a hooks array already contains a goodvibes hook.
func HasGoodvibesHook(entries []any) bool {
	for _, entry := range entries {
		if isGoodvibesEntry(entry) {
			return true
		}
	}
	return false
}

func hookEntryEqual(a, b map[string]any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}

type installOutcome int

const (
	hookInstalled installOutcome = iota
	hookUpdated
	hookSkipped
)

// upsertHookEntry replaces any goodvibes entries with newEntry and keeps
// every foreign entry in place.
func upsertHookEntry(existing []any, newEntry map[string]any) ([]any, installOutcome) {
	kept := make([]any, 0, len(existing)+1)
	hadOurs := false
	matching := false

	for _, current := range existing {
		if !isGoodvibesEntry(current) {
			kept = append(kept, current)
			continue
		}
		hadOurs = true
		if entryObj, ok := current.(map[string]any); ok && hookEntryEqual(entryObj, newEntry) {
			matching = true
		}
	}

	kept = append(kept, newEntry)
	switch {
	case matching:
		return kept, hookSkipped
	case hadOurs:
		return kept, hookUpdated
	default:
		return kept, hookInstalled
	}
}

// removeHookEntries drops goodvibes entries and reports whether any were removed.
func removeHookEntries(existing []any) ([]any, bool) {
	kept := make([]any, 0, len(existing))
	for _, entry := range existing {
		if !isGoodvibesEntry(entry) {
			kept = append(kept, entry)
		}
	}
	return kept, len(kept) != len(existing)
}

type installResult struct {
	Path      string   `json:"path"`
	Installed []string `json:"installed"`
	Updated   []string `json:"updated"`
	Skipped   []string `json:"skipped"`
	Message   string   `json:"message"`
}

// installHooks upserts the goodvibes entries into the settings file at path.
func installHooks(path string) (installResult, error) {
	settings, err := readSettings(path)
	if err != nil {
		return installResult{}, err
	}

	hooksObj, _ := settings["hooks"].(map[string]any)
	if hooksObj == nil {
		hooksObj = map[string]any{}
	}

	res := installResult{Path: path, Installed: []string{}, Updated: []string{}, Skipped: []string{}}
	for _, eventName := range hookEventNames() {
		existing, _ := hooksObj[eventName].([]any)

		entryJSON, _ := json.Marshal(goodvibesHooks()[eventName])
		var entryMap map[string]any
		_ = json.Unmarshal(entryJSON, &entryMap)

		entries, outcome := upsertHookEntry(existing, entryMap)
		hooksObj[eventName] = entries

		switch outcome {
		case hookInstalled:
			res.Installed = append(res.Installed, eventName)
		case hookUpdated:
			res.Updated = append(res.Updated, eventName)
		case hookSkipped:
			res.Skipped = append(res.Skipped, eventName)
		}
	}

	settings["hooks"] = hooksObj
	if err := writeSettings(path, settings); err != nil {
		return installResult{}, err
	}

	var parts []string
	if len(res.Installed) > 0 {
		parts = append(parts, fmt.Sprintf("Claude Code hooks installed (%s)", strings.Join(res.Installed, ", ")))
	}
	if len(res.Updated) > 0 {
		parts = append(parts, fmt.Sprintf("Claude Code hooks updated (%s)", strings.Join(res.Updated, ", ")))
	}
	if len(parts) == 0 {
		parts = append(parts, "Claude Code hooks already installed")
	}
	res.Message = strings.Join(parts, "; ") + ". Run 'goodvibes doctor' to verify."
	return res, nil
}

type uninstallResult struct {
	Path    string   `json:"path"`
	Removed []string `json:"removed"`
}

// uninstallHooks removes goodvibes entries from the settings file at path.
// Events left empty are deleted; foreign entries stay.
func uninstallHooks(path string) (uninstallResult, error) {
	res := uninstallResult{Path: path, Removed: []string{}}

	settings, err := readSettings(path)
	if err != nil {
		return res, err
	}
	hooksObj, _ := settings["hooks"].(map[string]any)
	if hooksObj == nil {
		return res, nil
	}

	for _, eventName := range hookEventNames() {
		entries, ok := hooksObj[eventName].([]any)
		if !ok {
			continue
		}
		kept, removed := removeHookEntries(entries)
		if !removed {
			continue
		}
		res.Removed = append(res.Removed, eventName)
		if len(kept) == 0 {
			delete(hooksObj, eventName)
		} else {
			hooksObj[eventName] = kept
		}
	}

	if len(res.Removed) == 0 {
		return res, nil
	}
	settings["hooks"] = hooksObj
	return res, writeSettings(path, settings)
}

// NewInstallCmd creates the hook install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install goodvibes hooks for Claude Code",
		Long:  "Adds PostToolUseFailure and SessionStart handlers to Claude Code settings.json.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectScoped, _ := cmd.Flags().GetBool("project")
			res, err := installHooks(resolveClaudeSettingsPath(projectScoped))
			if err != nil {
				return err
			}
			return output.PrintSuccess(res)
		},
	}

	cmd.Flags().Bool("project", false, "Install hooks in ./.claude/settings.json")
	return cmd
}

// NewUninstallCmd creates the hook uninstall command.
func NewUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove goodvibes hooks from Claude Code",
		Long:  "Removes goodvibes handler entries from Claude Code settings.json.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectScoped, _ := cmd.Flags().GetBool("project")
			res, err := uninstallHooks(resolveClaudeSettingsPath(projectScoped))
			if err != nil {
				return err
			}
			return output.PrintSuccess(res)
		},
	}

	cmd.Flags().Bool("project", false, "Uninstall hooks from ./.claude/settings.json")
	return cmd
}
