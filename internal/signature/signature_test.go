package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	msgs := []string{
		"",
		"Error at /a/b.ts:10:5",
		"TypeError: Cannot read properties of undefined (reading 'x')",
		"héllo wörld ✓",
	}
	for _, m := range msgs {
		require.Equal(t, Generate(m, ""), Generate(m, ""), m)
		require.Equal(t, Generate(m, "Bash"), Generate(m, "Bash"), m)
	}
}

func TestGenerate_Format(t *testing.T) {
	sig := Generate("something broke", "")
	require.True(t, strings.HasPrefix(sig, Prefix), sig)
	require.Regexp(t, `^err_[0-9a-f]+$`, sig)

	require.Regexp(t, `^err_[0-9a-f]+$`, Generate("", ""))
	require.Equal(t, "err_0", Generate("", ""))
}

func TestGenerate_ErasesPathsAndLocators(t *testing.T) {
	require.Equal(t,
		Generate("Error at /a/b.ts:10:5", ""),
		Generate("Error at /x/y.ts:99:1", ""))

	require.Equal(t,
		Generate(`Cannot open C:\Users\dev\app\main.go`, ""),
		Generate(`Cannot open D:\work\other\file.go`, ""))

	require.Equal(t,
		Generate("SyntaxError on line 12", ""),
		Generate("SyntaxError on line 480", ""))
}

func TestGenerate_ErasesTimestampsAndAddresses(t *testing.T) {
	require.Equal(t,
		Generate("2024-01-15T10:30:00Z panic: nil map write", ""),
		Generate("2025-11-02T23:01:59.123+02:00 panic: nil map write", ""))

	require.Equal(t,
		Generate("segfault at 0x7ffe3a2b", ""),
		Generate("segfault at 0xDEADBEEF", ""))
}

func TestGenerate_WhitespaceAndCase(t *testing.T) {
	require.Equal(t,
		Generate("  Module   NOT found\n\tfoo ", ""),
		Generate("module not found foo", ""))
}

func TestGenerate_ToolNameScopes(t *testing.T) {
	msg := "exit status 1"
	require.NotEqual(t, Generate(msg, ""), Generate(msg, "Bash"))
	require.NotEqual(t, Generate(msg, "Bash"), Generate(msg, "Write"))
}

func TestGenerate_DifferentFailuresDiffer(t *testing.T) {
	require.NotEqual(t,
		Generate("Cannot find module 'react'", ""),
		Generate("Property 'x' does not exist on type 'Y'", ""))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		tool string
		want string
	}{
		{"posix path with locator", "Error at /a/b.ts:10:5", "", "error at <path>:<line>:<col>"},
		{"path with line only", "see /src/app.go:42", "", "see <path>:<line>"},
		{"timestamp", "at 2024-01-15 10:30:00 failed", "", "at <timestamp> failed"},
		{"hex", "addr 0xABCDEF", "", "addr <addr>"},
		{"tool prefix", "Oops", "Bash", "Bash::oops"},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.in, tt.tool))
		})
	}
}

func TestHash_WrapsToInt32(t *testing.T) {
	long := strings.Repeat("overflow ", 500)
	sig := Generate(long, "")
	require.Regexp(t, `^err_[0-9a-f]{1,8}$`, sig)
}

func TestNormalize_OnlyAbsolutePaths(t *testing.T) {
	pairs := [][2]string{
		{"Cannot find module './utils'", "Cannot find module './config'"},
		{"error: pathspec 'feature/login' did not match", "error: pathspec 'feature/signup' did not match"},
		{"GET https://api.example.com/users failed", "GET https://api.example.com/orders failed"},
		{"Cannot find module '@scope/pkg-a'", "Cannot find module '@scope/pkg-b'"},
	}
	for _, p := range pairs {
		require.NotEqual(t, Generate(p[0], ""), Generate(p[1], ""), p[0])
	}

	require.Equal(t, "cannot find module './utils'", Normalize("Cannot find module './utils'", ""))
	require.Equal(t, "mkdir: <path>: permission denied", Normalize("mkdir: /opt/app: Permission denied", ""))
	require.Equal(t, "at fn (<path>:<line>:<col>)", Normalize("at fn (/a/b.ts:10:5)", ""))
	require.Equal(t, Generate("open '/a/b.ts:10:5'", ""), Generate("open '/x/y.ts:3:1'", ""))
}

func TestNormalize_HexNeedsWordStart(t *testing.T) {
	require.Equal(t, "resize 10x5 failed", Normalize("resize 10x5 failed", ""))
	require.Equal(t, "ptr <addr>", Normalize("ptr 0x1f", ""))
}
