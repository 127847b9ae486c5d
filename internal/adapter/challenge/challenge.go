// Package challenge provides domain.ChallengeResponder implementations.
package challenge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"bodysync/internal/domain"
)

// Prompt asks on Out and reads a single line from In.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// Respond writes prompt and returns the trimmed answer.
func (p Prompt) Respond(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(p.Out, prompt); err != nil {
		return "", err
	}
	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		line := strings.TrimSpace(a.line)
		if a.err != nil && (a.err != io.EOF || line == "") {
			return "", fmt.Errorf("%w: no answer to %q: %w", domain.ErrConfig, strings.TrimSpace(prompt), a.err)
		}
		return line, nil
	}
}

// Refuse fails every challenge. Scheduled runs use it so that a required
// one-time code surfaces as a configuration error instead of blocking.
type Refuse struct{}

// Respond always returns an ErrConfig error.
func (Refuse) Respond(_ context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("%w: interactive challenge %q cannot be answered in a non-interactive run; run the login interactively once to store a session",
		domain.ErrConfig, strings.TrimSpace(prompt))
}

var (
	_ domain.ChallengeResponder = Prompt{}
	_ domain.ChallengeResponder = Refuse{}
)
