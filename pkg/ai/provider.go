package ai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// execCommandContext is swapped out in tests.
var execCommandContext = exec.CommandContext

// Provider produces a free-text risk narrative for a prompt.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, prompt string) (string, error)
}

// New returns the backend selected by name. "none" or "" disables the
// narrative and returns a nil Provider.
func New(name, model string, timeout time.Duration) (Provider, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "claude":
		return &CLIProvider{name: "claude", binary: "claude", args: claudeArgs, model: model, timeout: timeout}, nil
	case "gemini":
		return &CLIProvider{name: "gemini", binary: "gemini", args: geminiArgs, model: model, timeout: timeout}, nil
	case "openai":
		p, err := NewOpenAIProvider(model, timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
}

func claudeArgs(model string) []string {
	args := []string{"-p", "--output-format", "text"}
	if model != "" {
		args = append(args, "--model", model)
	}
	return args
}

func geminiArgs(model string) []string {
	args := []string{"--output-format", "text"}
	if model != "" && model != "auto" {
		args = append(args, "--model", model)
	}
	return args
}

// CLIProvider runs an AI command-line tool with the prompt on stdin and reads
// the narrative from stdout.
type CLIProvider struct {
	name    string
	binary  string
	args    func(model string) []string
	model   string
	timeout time.Duration
}

func (p *CLIProvider) Name() string { return p.name }

func (p *CLIProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	args := p.args(p.model)
	cmd := execCommandContext(ctx, p.binary, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running ai cli", "binary", p.binary, "args", strings.Join(args, " "), "prompt_bytes", len(prompt))
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s cli: %w", p.name, ctx.Err())
		}
		return "", fmt.Errorf("%s cli: %w: %s", p.name, err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	slog.Debug("ai cli finished", "binary", p.binary, "duration", time.Since(start), "output_bytes", len(out))
	if out == "" {
		return "", fmt.Errorf("%s cli returned no output", p.name)
	}
	return out, nil
}
