package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeClipboard replaces the system clipboard for the duration of a test.
type fakeClipboard struct {
	content  string
	writes   []string
	writeErr error
}

func stubClipboard(t *testing.T) *fakeClipboard {
	t.Helper()
	fake := &fakeClipboard{}
	origWrite, origRead := writeClipboard, readClipboard
	writeClipboard = func(s string) error {
		if fake.writeErr != nil {
			return fake.writeErr
		}
		fake.writes = append(fake.writes, s)
		fake.content = s
		return nil
	}
	readClipboard = func() (string, error) { return fake.content, nil }
	t.Cleanup(func() { writeClipboard, readClipboard = origWrite, origRead })
	return fake
}

func TestCopyToClipboardNoClear(t *testing.T) {
	fake := stubClipboard(t)
	var out bytes.Buffer

	if err := copyToClipboard(context.Background(), &out, "hunter2", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.content != "hunter2" {
		t.Errorf("clipboard = %q, want %q", fake.content, "hunter2")
	}
	if !strings.Contains(out.String(), "Copied to clipboard") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCopyToClipboardClearsOnCancel(t *testing.T) {
	fake := stubClipboard(t)
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := copyToClipboard(ctx, &out, "hunter2", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.content != "" {
		t.Errorf("clipboard = %q, want it cleared", fake.content)
	}
	if !strings.Contains(out.String(), "Clipboard cleared") {
		t.Errorf("output = %q, want clear notice", out.String())
	}
}

func TestCopyToClipboardClearsAfterTimeout(t *testing.T) {
	fake := stubClipboard(t)
	var out bytes.Buffer

	if err := copyToClipboard(context.Background(), &out, "hunter2", 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.content != "" {
		t.Errorf("clipboard = %q, want it cleared", fake.content)
	}
}

func TestClearClipboardKeepsNewContent(t *testing.T) {
	fake := stubClipboard(t)
	fake.content = "something else"

	cleared, err := clearClipboard("hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared {
		t.Error("clearClipboard() cleared content it did not put there")
	}
	if fake.content != "something else" {
		t.Errorf("clipboard = %q, want it untouched", fake.content)
	}
}

func TestCopyToClipboardWriteError(t *testing.T) {
	fake := stubClipboard(t)
	fake.writeErr = errors.New("no display")

	err := copyToClipboard(context.Background(), &bytes.Buffer{}, "hunter2", 0)
	if err == nil || !strings.Contains(err.Error(), "no display") {
		t.Errorf("expected write error, got %v", err)
	}
}
