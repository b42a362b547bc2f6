package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/goodvibes/internal/actions"
	"github.com/dotcommander/goodvibes/internal/app"
	"github.com/dotcommander/goodvibes/internal/commands/hookcmd"
	"github.com/dotcommander/goodvibes/internal/models"
)

const (
	// maxHookStdinBytes caps stdin reads. Hook payloads are small JSON objects;
	// 1 MB is generous headroom that prevents unbounded allocation.
	maxHookStdinBytes = 1 << 20

	// maxErrorTextRunes bounds the error text fed to the signature and matcher.
	maxErrorTextRunes = 4000

	// maxOutstandingListed caps the session-start summary.
	maxOutstandingListed = 3
)

// NewHookCmd creates the hook parent command.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Hook handlers and installers for Claude Code",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(hookcmd.NewInstallCmd())
	cmd.AddCommand(hookcmd.NewUninstallCmd())

	// Hook handler subcommands are called by the hook system, not agents directly.
	for _, sub := range []*cobra.Command{
		newHookToolFailureCmd(),
		newHookSessionStartCmd(),
	} {
		sub.Hidden = true
		cmd.AddCommand(sub)
	}

	namespaceIndex(cmd)
	return cmd
}

// hookInput is the JSON Claude Code sends on stdin to hooks.
type hookInput struct {
	CWD           string          `json:"cwd"`
	SessionID     string          `json:"session_id"`
	HookEventName string          `json:"hook_event_name"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	ToolResponse  json.RawMessage `json:"tool_response"`
	Error         string          `json:"error"`
	IsInterrupt   bool            `json:"is_interrupt"`
	Source        string          `json:"source"`
}

// hookOutput is the JSON Claude Code expects on stdout from hooks.
type hookOutput struct {
	HookSpecificOutput *hookSpecific `json:"hookSpecificOutput,omitempty"`
}

type hookSpecific struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

func readHookStdin(r io.Reader) hookInput {
	data, err := io.ReadAll(io.LimitReader(r, maxHookStdinBytes))
	if err != nil {
		slog.Default().Warn("hook stdin read failed", "error", err)
		return hookInput{}
	}
	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		slog.Default().Warn("hook stdin unmarshal failed", "error", err, "bytes", len(data))
	}
	return input
}

// emitHookJSON writes a hookOutput JSON to w.
func emitHookJSON(w io.Writer, eventName, context string) error {
	out := hookOutput{
		HookSpecificOutput: &hookSpecific{
			HookEventName:     eventName,
			AdditionalContext: context,
		},
	}
	return json.NewEncoder(w).Encode(out)
}

func truncateString(raw string, max int) (string, bool) {
	if max <= 0 {
		return raw, false
	}
	runes := []rune(raw)
	if len(runes) <= max {
		return raw, false
	}
	return string(runes[:max]), true
}

// extractErrorText pulls the failure text out of the payload: the top-level
// error field, else the tool response as a string or its stderr/error/message
// fields.
func extractErrorText(input hookInput) string {
	text := strings.TrimSpace(input.Error)
	if text == "" {
		text = errorTextFromResponse(input.ToolResponse)
	}
	text, _ = truncateString(text, maxErrorTextRunes)
	return text
}

func errorTextFromResponse(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return strings.TrimSpace(string(raw))
	}
	var parts []string
	for _, key := range []string{"stderr", "error", "message"} {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	return strings.Join(parts, "\n")
}

// extractCommand returns tool_input.command for Bash calls.
func extractCommand(raw json.RawMessage) string {
	var in struct {
		Command string `json:"command"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &in) != nil {
		return ""
	}
	return in.Command
}

func hookContextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newHookToolFailureCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "tool-failure",
		Short:         "PostToolUseFailure hook: track the error and suggest the next step",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := readHookStdin(cmd.InOrStdin())
			if input.ToolName == "" || input.IsInterrupt {
				return nil
			}
			errText := extractErrorText(input)
			if errText == "" {
				return nil
			}

			// Hooks must never block Claude Code: log diagnostic and exit clean.
			rec, err := recordToolFailure(hookContextOf(cmd), resolveScope(cmd, input.CWD), actions.Failure{
				ToolName:  input.ToolName,
				Command:   extractCommand(input.ToolInput),
				ErrorText: errText,
			})
			if err != nil {
				slog.Default().Error("tool-failure hook failed", "error", err, "tool_name", input.ToolName)
				return nil
			}

			if err := emitHookJSON(cmd.OutOrStdout(), "PostToolUseFailure", formatRecovery(input.ToolName, rec)); err != nil {
				slog.Default().Warn("tool-failure hook output failed", "error", err)
			}
			return nil
		},
	}
}

func recordToolFailure(ctx context.Context, scope string, f actions.Failure) (actions.Recovery, error) {
	catalog, err := loadCatalog()
	if err != nil {
		return actions.Recovery{}, err
	}
	tracker, closeStore, err := openTracker(ctx, scope)
	if err != nil {
		return actions.Recovery{}, err
	}
	defer closeStore()

	return actions.NewEngine(catalog, tracker).RecordFailure(ctx, f)
}

// formatRecovery renders the additionalContext block for the agent.
func formatRecovery(toolName string, rec actions.Recovery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[goodvibes] %s failed (%s, severity %s, signature %s)\n", toolName, rec.Category, rec.Severity, rec.Signature)

	if rec.Exhausted {
		fmt.Fprintf(&b, "Retry budget exhausted after %d attempts across all phases. ", rec.Attempts)
		b.WriteString("Stop retrying this error. Summarize what was tried and ask the user how to proceed.\n")
		return strings.TrimRight(b.String(), "\n")
	}

	if rec.Escalated {
		fmt.Fprintf(&b, "Escalated. %s.\n", rec.PhaseDescription)
	} else {
		fmt.Fprintf(&b, "%s.\n", rec.PhaseDescription)
	}
	fmt.Fprintf(&b, "Attempt %d overall, %d left in this phase.\n", rec.Attempts, rec.Remaining)
	fmt.Fprintf(&b, "Suggested fix: %s\n", rec.SuggestedFix)

	if len(rec.Hints.Official) > 0 {
		fmt.Fprintf(&b, "Official sources: %s\n", strings.Join(rec.Hints.Official, ", "))
	}
	if len(rec.Hints.Community) > 0 {
		fmt.Fprintf(&b, "Community sources: %s\n", strings.Join(rec.Hints.Community, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func newHookSessionStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "session-start",
		Short:         "SessionStart hook: prune stale retries and summarize open ones",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := readHookStdin(cmd.InOrStdin())
			ctx := hookContextOf(cmd)

			tracker, closeStore, err := openTracker(ctx, resolveScope(cmd, input.CWD))
			if err != nil {
				slog.Default().Error("session-start hook failed", "error", err)
				return nil
			}
			defer closeStore()

			maxAge := time.Duration(app.EffectivePruneMaxAgeHours()) * time.Hour
			summary, err := actions.StartSession(ctx, tracker, maxAge)
			if err != nil {
				slog.Default().Error("session-start hook failed", "error", err)
				return nil
			}
			if len(summary.Outstanding) == 0 {
				return nil
			}

			if err := emitHookJSON(cmd.OutOrStdout(), "SessionStart", formatSessionSummary(summary)); err != nil {
				slog.Default().Warn("session-start hook output failed", "error", err)
			}
			return nil
		},
	}
}

func formatSessionSummary(s actions.SessionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[goodvibes] %d tracked error(s) in this project (phase 1: %d, phase 2: %d, phase 3: %d).",
		s.Stats.TotalSignatures, s.Stats.Phase1Count, s.Stats.Phase2Count, s.Stats.Phase3Count)
	for i, e := range s.Outstanding {
		if i == maxOutstandingListed {
			fmt.Fprintf(&b, "\n  ... and %d more", len(s.Outstanding)-maxOutstandingListed)
			break
		}
		category := e.Category
		if category == "" {
			category = models.CategoryUnknown
		}
		fmt.Fprintf(&b, "\n  %s: %s, phase %d, %d attempt(s)", e.Signature, category, e.Phase, e.Attempts)
	}
	return b.String()
}
