// Package prompt asks the user for credential fields and passphrases.
//
// On a terminal, secrets are read with echo disabled. Otherwise every answer,
// secrets included, is read line by line from the input stream, which keeps
// pwdy scriptable and testable.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"
)

var (
	// ErrMismatch is returned when no matching pair of entries was given
	// within the allowed attempts.
	ErrMismatch = errors.New("entries didn't match")

	// ErrNoInput is returned when the input ends before an answer.
	ErrNoInput = errors.New("no input")
)

// DefaultAttempts is how many tries NewSecret allows.
const DefaultAttempts = 3

// Prompter reads answers from an input stream and writes questions to an
// output stream.
type Prompter struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	terminal bool
	attempts int
	limiter  *rate.Limiter
}

// Option configures a Prompter.
type Option func(*Prompter)

// WithIO replaces stdin and stderr. Input that is not a terminal is read
// line by line, secrets included.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(p *Prompter) {
		p.in = bufio.NewReader(in)
		p.out = out
		p.terminal = false
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			p.fd = int(f.Fd())
			p.terminal = true
		}
	}
}

// WithAttempts sets how many tries NewSecret allows.
func WithAttempts(n int) Option {
	return func(p *Prompter) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithLimiter paces repeated attempts.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Prompter) {
		p.limiter = l
	}
}

// New returns a Prompter on stdin and stderr. Retries are paced at one per
// second after the first.
func New(opts ...Option) *Prompter {
	p := &Prompter{
		attempts: DefaultAttempts,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
	WithIO(os.Stdin, os.Stderr)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Line asks for a single line of visible input.
func (p *Prompter) Line(ctx context.Context, label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	return p.await(ctx, p.readLine)
}

// Secret asks for a value without echoing it.
func (p *Prompter) Secret(ctx context.Context, label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.terminal {
		return p.await(ctx, p.readLine)
	}

	state, err := term.GetState(p.fd)
	if err != nil {
		return "", fmt.Errorf("reading terminal state: %w", err)
	}
	s, err := p.await(ctx, func() (string, error) {
		b, err := term.ReadPassword(p.fd)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	})
	if ctx.Err() != nil {
		// ReadPassword is still blocked with echo off.
		_ = term.Restore(p.fd, state)
	}
	fmt.Fprintln(p.out)
	return s, err
}

// Confirm asks a yes/no question. Anything not starting with y counts as no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.Line(ctx, question+" [y/n]")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return strings.HasPrefix(answer, "y"), nil
}

// NewSecret asks for a new secret twice and returns it once both entries
// match. Empty entries are refused. After the allowed attempts it returns
// ErrMismatch.
func (p *Prompter) NewSecret(ctx context.Context, label string) (string, error) {
	for i := 0; i < p.attempts; i++ {
		if i > 0 {
			if err := p.limiter.Wait(ctx); err != nil {
				return "", err
			}
		} else {
			// The first attempt is free; spend the burst token so retries wait.
			p.limiter.Allow()
		}

		first, err := p.Secret(ctx, label)
		if err != nil {
			return "", err
		}
		if first == "" {
			fmt.Fprintln(p.out, "Empty entries aren't allowed.")
			continue
		}
		second, err := p.Secret(ctx, label+" (again)")
		if err != nil {
			return "", err
		}
		if first == second {
			return first, nil
		}
		fmt.Fprintln(p.out, "Entries didn't match.")
	}
	return "", fmt.Errorf("%w after %d attempts", ErrMismatch, p.attempts)
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// await runs read in the background so a canceled context unblocks the
// caller even while the read is stuck on the terminal.
func (p *Prompter) await(ctx context.Context, read func() (string, error)) (string, error) {
	type result struct {
		s   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := read()
		ch <- result{s, err}
	}()

	select {
	case r := <-ch:
		return r.s, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
