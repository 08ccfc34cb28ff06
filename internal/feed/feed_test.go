package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStdinSource_ReadsProfileText(t *testing.T) {
	var out bytes.Buffer
	source := NewStdinSource(strings.NewReader("stats.txt\n"), &out)
	source.readAll = func(path string) ([]byte, error) {
		if path != "stats.txt" {
			t.Errorf("Expected path stats.txt, got %s", path)
		}
		return []byte("1\nA:10:2\n"), nil
	}

	text, err := source.Next(context.Background())
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if text != "1\nA:10:2\n" {
		t.Errorf("Unexpected text %q", text)
	}
	if !strings.Contains(out.String(), "Enter path") {
		t.Errorf("Expected a prompt, got %q", out.String())
	}
}

func TestStdinSource_QuitTerminates(t *testing.T) {
	source := NewStdinSource(strings.NewReader("quit\n"), io.Discard)

	_, err := source.Next(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF on quit, got %v", err)
	}
}

func TestStdinSource_StreamEndTerminates(t *testing.T) {
	source := NewStdinSource(strings.NewReader(""), io.Discard)

	_, err := source.Next(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF at stream end, got %v", err)
	}
}

func TestStdinSource_UnreadableFileIsError(t *testing.T) {
	source := NewStdinSource(strings.NewReader("missing.txt\n"), io.Discard)

	_, err := source.Next(context.Background())
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("Expected a read error, got %v", err)
	}
}

func TestDirSource_DeliversDroppedFile(t *testing.T) {
	dir := t.TempDir()
	source, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	source.Start(ctx)

	want := "1\nA:10:2\n"
	if err := os.WriteFile(filepath.Join(dir, "round1.txt"), []byte(want), 0o644); err != nil {
		t.Fatalf("Failed to drop file: %v", err)
	}

	text, err := source.Next(ctx)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if text != want {
		t.Errorf("Expected %q, got %q", want, text)
	}
}

func TestDirSource_DeliversEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	source, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	source.Start(ctx)

	if err := os.WriteFile(filepath.Join(dir, "round1.txt"), []byte("first"), 0o644); err != nil {
		t.Fatalf("Failed to drop file: %v", err)
	}
	if _, err := source.Next(ctx); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}

	// Several rescan intervals pass without the file being re-delivered
	redeliver, cancelShort := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancelShort()
	if text, err := source.Next(redeliver); !errors.Is(err, io.EOF) {
		t.Fatalf("File delivered twice: %q, err=%v", text, err)
	}
}

func TestDirSource_RedeliversRewriteWithSameModTime(t *testing.T) {
	dir := t.TempDir()
	source, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	source.Start(ctx)

	// Pin both versions of the file to the same timestamp. Coarse
	// filesystem mod-time granularity can do this on its own when a
	// file is rewritten quickly.
	path := filepath.Join(dir, "round1.txt")
	stamp := time.Now().Truncate(time.Second)

	if err := os.WriteFile(path, []byte("2\nA:10:2\nB:5:1\n"), 0o644); err != nil {
		t.Fatalf("Failed to drop file: %v", err)
	}
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("Failed to pin mod time: %v", err)
	}
	if _, err := source.Next(ctx); err != nil {
		t.Fatalf("Next returned error: %v", err)
	}

	want := "2\nA:12:2\nB:5:1\n"
	if err := os.WriteFile(path, []byte(want), 0o644); err != nil {
		t.Fatalf("Failed to rewrite file: %v", err)
	}
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("Failed to pin mod time: %v", err)
	}

	text, err := source.Next(ctx)
	if err != nil {
		t.Fatalf("Rewrite not delivered: %v", err)
	}
	if text != want {
		t.Errorf("Expected rewritten contents %q, got %q", want, text)
	}
}

func TestDirSource_CancelledContextTerminates(t *testing.T) {
	source, err := NewDirSource(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirSource returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	source.Start(ctx)
	cancel()

	_, err = source.Next(ctx)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF after cancellation, got %v", err)
	}
}
