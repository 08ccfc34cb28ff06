// Package feed supplies new statistics texts to the monitoring loop.
// A source blocks until the next profile text arrives and signals
// termination with io.EOF, so the orchestrator depends on no particular
// I/O mechanism.
package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdinSource reads statistics file paths interactively, one per
// monitoring round. The literal "quit" terminates the run.
type StdinSource struct {
	in      *bufio.Scanner
	out     io.Writer
	readAll func(path string) ([]byte, error)
}

// NewStdinSource creates an interactive source on the given reader and
// writer (os.Stdin and os.Stdout in production).
func NewStdinSource(in io.Reader, out io.Writer) *StdinSource {
	return &StdinSource{
		in:      bufio.NewScanner(in),
		out:     out,
		readAll: os.ReadFile,
	}
}

// Next prompts for a statistics file path and returns its contents.
// Returns io.EOF on "quit" or when the input stream ends.
func (s *StdinSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", io.EOF
	}

	fmt.Fprint(s.out, "\nEnter path to new statistics file (or 'quit' to exit): ")
	if !s.in.Scan() {
		return "", io.EOF
	}

	path := strings.TrimSpace(s.in.Text())
	if strings.EqualFold(path, "quit") {
		return "", io.EOF
	}

	data, err := s.readAll(path)
	if err != nil {
		return "", fmt.Errorf("failed to read statistics file: %w", err)
	}
	return string(data), nil
}
