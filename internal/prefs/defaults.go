package prefs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrUnavailable = errors.New("preference store unavailable")

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// DefaultsStore reads a macOS defaults domain through the defaults tool.
type DefaultsStore struct {
	Domain string
	// Run defaults to os/exec.
	Run Runner
}

func NewDefaultsStore(domain string) *DefaultsStore {
	if strings.TrimSpace(domain) == "" {
		domain = DefaultDomain
	}
	return &DefaultsStore{Domain: domain}
}

// Read tries defaults on PATH, then /usr/bin/defaults, then a login shell. A
// non-zero exit means the key is absent.
func (s *DefaultsStore) Read(ctx context.Context, key string) (string, bool, error) {
	out, err := s.defaults(ctx, s.Domain, key)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(string(out)), true, nil
}

func (s *DefaultsStore) Exists(ctx context.Context) bool {
	_, err := s.defaults(ctx, s.Domain)
	return err == nil
}

func (s *DefaultsStore) defaults(ctx context.Context, args ...string) ([]byte, error) {
	run := s.Run
	if run == nil {
		run = execRunner
	}
	readArgs := append([]string{"read"}, args...)
	attempts := [][]string{
		append([]string{"defaults"}, readArgs...),
		append([]string{"/usr/bin/defaults"}, readArgs...),
		{"sh", "-c", "defaults " + shellJoin(readArgs)},
	}
	var lastErr error
	for _, a := range attempts {
		out, err := run(ctx, a[0], a[1:]...)
		if err == nil {
			return out, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// only the shell reports a missing binary as an exit status
			if a[0] == "sh" && exitErr.ExitCode() == 127 {
				lastErr = err
				break
			}
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
