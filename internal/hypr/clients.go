// Package hypr talks to the Hyprland compositor: the client list from hyprctl
// and the line-oriented event socket.
package hypr

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/bryanchriswhite/hyprdock/internal/ident"
	"github.com/bryanchriswhite/hyprdock/internal/jsontok"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
)

// Token capacities for scanning hyprctl output. Each client object yields
// roughly 60 tokens, so the initial size covers well over a hundred windows.
const (
	DefaultTokenCapacity = 8192
	MaxTokenCapacity     = 1 << 18
)

var classKey = []byte("class")

// Runner executes an external command and returns its standard output.
// This allows for mocking in tests.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Output runs name with args and returns whatever was written to stdout,
// together with the run error. Output is returned even when the command
// exits non-zero.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.Bytes(), err
}

// ClassCounter reports how many windows of each class are open, using
// `hyprctl -j clients`.
type ClassCounter struct {
	runner  Runner
	command []string
}

// NewClassCounter returns a counter backed by runner. A nil runner uses ExecRunner.
func NewClassCounter(runner Runner) *ClassCounter {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &ClassCounter{
		runner:  runner,
		command: []string{"hyprctl", "-j", "clients"},
	}
}

// Counts returns lowercase window class -> number of open windows.
// It never fails: a missing compositor or unreadable output yields an empty
// map so callers render everything as not running.
func (c *ClassCounter) Counts(ctx context.Context) map[string]int {
	log := logger.WithComponent("hypr-clients")

	out, err := c.runner.Output(ctx, c.command[0], c.command[1:]...)
	if len(out) == 0 {
		if err != nil {
			log.Debug().Err(err).Str("command", strings.Join(c.command, " ")).Msg("Client query failed")
		}
		return map[string]int{}
	}
	if err != nil {
		log.Debug().Err(err).Msg("Client query exited with error, using its output anyway")
	}

	counts, err := CountClasses(out, DefaultTokenCapacity, MaxTokenCapacity)
	if err != nil {
		log.Warn().Err(err).Int("classes", len(counts)).Msg("Client list only partially parsed")
	}
	return counts
}

// CountClasses scans a hyprctl client dump and counts class values.
//
// The token slice starts at capacity and doubles on exhaustion up to
// maxCapacity. Whatever was tokenized before an error is still counted, and
// the error is returned alongside the partial counts.
func CountClasses(js []byte, capacity, maxCapacity int) (map[string]int, error) {
	if capacity <= 0 {
		capacity = DefaultTokenCapacity
	}
	if maxCapacity < capacity {
		maxCapacity = capacity
	}

	tokens := make([]jsontok.Token, capacity)
	p := jsontok.NewParser()
	n, err := p.Parse(js, tokens)
	for errors.Is(err, jsontok.ErrNoMemory) && len(tokens) < maxCapacity {
		grown := make([]jsontok.Token, min(len(tokens)*2, maxCapacity))
		copy(grown, tokens)
		tokens = grown
		n, err = p.Parse(js, tokens)
	}

	return countClassTokens(js, tokens[:n]), err
}

// countClassTokens counts every "class" string immediately followed by a
// string value. The value token is consumed with its key.
func countClassTokens(js []byte, toks []jsontok.Token) map[string]int {
	counts := make(map[string]int)
	for i := 0; i < len(toks)-1; i++ {
		if toks[i].Kind != jsontok.String || !bytes.Equal(toks[i].Text(js), classKey) {
			continue
		}
		if toks[i+1].Kind != jsontok.String {
			continue
		}

		class := ident.Lower(strings.TrimSpace(string(toks[i+1].Text(js))))
		if class != "" {
			counts[class]++
		}
		i++
	}
	return counts
}
