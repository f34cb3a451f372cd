package ai

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/bump"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockExec(t *testing.T) *[]string {
	t.Helper()
	original := execCommandContext
	t.Cleanup(func() { execCommandContext = original })

	var seen []string
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		seen = append([]string{name}, args...)
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
		return cmd
	}
	return &seen
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	in, _ := io.ReadAll(os.Stdin)
	prompt := string(in)
	switch {
	case strings.Contains(prompt, "fail"):
		fmt.Fprint(os.Stderr, "model unavailable")
		os.Exit(1)
	case strings.Contains(prompt, "silent"):
		return
	case strings.Contains(prompt, "slow"):
		time.Sleep(5 * time.Second)
	}
	fmt.Println("Looks fine.\n---RISK_ASSESSMENT_START---\nRISK_LEVEL: low\nCONFIDENCE: high\nPRIMARY_REASON: patch release\n---RISK_ASSESSMENT_END---")
}

func TestNew(t *testing.T) {
	p, err := New("none", "", 0)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = New("Claude", "sonnet", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "claude", p.Name())

	p, err = New("gemini", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	_, err = New("gpt-cli", "", 0)
	assert.ErrorContains(t, err, "unknown ai provider")
}

func TestCLIProvider_Analyze(t *testing.T) {
	seen := mockExec(t)

	p, err := New("claude", "sonnet", time.Minute)
	require.NoError(t, err)

	out, err := p.Analyze(context.Background(), "review lodash")
	require.NoError(t, err)
	assert.Contains(t, out, "RISK_LEVEL: low")
	assert.Equal(t, []string{"claude", "-p", "--output-format", "text", "--model", "sonnet"}, *seen)

	p, _ = New("gemini", "auto", 0)
	_, err = p.Analyze(context.Background(), "review lodash")
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "--output-format", "text"}, *seen)
}

func TestCLIProvider_Errors(t *testing.T) {
	mockExec(t)

	p, _ := New("claude", "", 0)
	_, err := p.Analyze(context.Background(), "please fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")

	_, err = p.Analyze(context.Background(), "silent")
	assert.ErrorContains(t, err, "returned no output")

	p, _ = New("claude", "", 50*time.Millisecond)
	_, err = p.Analyze(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRenderPrompt(t *testing.T) {
	b := bump.Bump{Package: "lodash", From: "4.17.20", To: "4.17.21", Ecosystem: "npm"}
	prompt, err := RenderPrompt(PromptInput{
		Bump: b,
		Body: "Bumps lodash.",
		Advisories: []advisory.Advisory{
			{CVEs: []string{"CVE-2021-23337"}, ID: "GHSA-35jh-r3h4-6jhm", Severity: "high", Summary: "Command Injection in lodash"},
			{CVEs: []string{"CVE-2020-28500"}},
		},
		Previous: "Verdict: medium risk",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Package: lodash (npm)")
	assert.Contains(t, prompt, "From version: 4.17.20")
	assert.Contains(t, prompt, "Bumps lodash.")
	assert.Contains(t, prompt, "- CVE-2021-23337 (GHSA-35jh-r3h4-6jhm) [severity: high]: Command Injection in lodash\n")
	assert.Contains(t, prompt, "- CVE-2020-28500\n")
	assert.Contains(t, prompt, "A previous analysis of this pull request, for context:\nVerdict: medium risk")
	assert.Contains(t, prompt, "---RISK_ASSESSMENT_START---\nRISK_LEVEL: <low|medium|high|critical>\nCONFIDENCE: <low|medium|high>")

	prompt, err = RenderPrompt(PromptInput{Bump: bump.Bump{Package: "lodash", From: "1", To: "2"}, Body: strings.Repeat("x", maxBodyBytes+10)})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Package: lodash\n")
	assert.Contains(t, prompt, "No known security advisories are resolved by this update.")
	assert.Contains(t, prompt, "[truncated]")
	assert.NotContains(t, prompt, "previous analysis")
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("a", 9) + "é" // 'é' occupies bytes 9 and 10
	got := truncate(s, 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 9)+"\n[truncated]", got)

	assert.Equal(t, "short", truncate("short", 10))

	body := strings.Repeat("漢", maxBodyBytes)
	prompt, err := RenderPrompt(PromptInput{Bump: bump.Bump{Package: "x", From: "1", To: "2"}, Body: body})
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(prompt))
}
