// Package blobtest is a conformance suite for filecenter.BlobStore drivers.
package blobtest

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/gobeaver/filecenter"
)

// Run exercises a blob store created fresh by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) filecenter.BlobStore) {
	ctx := context.Background()

	t.Run("write then read", func(t *testing.T) {
		s := newStore(t)

		n, err := s.Write(ctx, "blobs/a", strings.NewReader("hello world"))
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if n != 11 {
			t.Errorf("Write returned %d bytes, want 11", n)
		}

		rc, err := s.Read(ctx, "blobs/a")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if string(data) != "hello world" {
			t.Errorf("Read content = %q, want %q", data, "hello world")
		}
	})

	t.Run("write replaces existing blob", func(t *testing.T) {
		s := newStore(t)

		mustWrite(t, s, "blobs/a", "first")
		mustWrite(t, s, "blobs/a", "second")

		if got := mustRead(t, s, "blobs/a"); got != "second" {
			t.Errorf("Read content = %q, want %q", got, "second")
		}
	})

	t.Run("read missing blob", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Read(ctx, "blobs/missing")
		if !filecenter.IsNotExist(err) {
			t.Errorf("expected ErrNotExist, got %v", err)
		}
	})

	t.Run("rejects traversal", func(t *testing.T) {
		s := newStore(t)

		if _, err := s.Write(ctx, "../escape", strings.NewReader("x")); err == nil {
			t.Error("expected error for path traversal")
		}
	})

	t.Run("exists and stat", func(t *testing.T) {
		s := newStore(t)
		mustWrite(t, s, "blobs/a", "12345")

		exists, err := s.Exists(ctx, "blobs/a")
		if err != nil || !exists {
			t.Errorf("Exists = %v, %v; want true, nil", exists, err)
		}

		exists, err = s.Exists(ctx, "blobs/b")
		if err != nil || exists {
			t.Errorf("Exists = %v, %v; want false, nil", exists, err)
		}

		info, err := s.Stat(ctx, "blobs/a")
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if info.Size != 5 {
			t.Errorf("Stat size = %d, want 5", info.Size)
		}
		if info.Key != "blobs/a" {
			t.Errorf("Stat key = %q, want %q", info.Key, "blobs/a")
		}
		if info.ModTime.IsZero() {
			t.Error("Stat mod time is zero")
		}

		if _, err := s.Stat(ctx, "blobs/b"); !filecenter.IsNotExist(err) {
			t.Errorf("expected ErrNotExist, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		mustWrite(t, s, "blobs/a", "x")

		if err := s.Delete(ctx, "blobs/a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if exists, _ := s.Exists(ctx, "blobs/a"); exists {
			t.Error("blob still exists after Delete")
		}
		if err := s.Delete(ctx, "blobs/a"); !filecenter.IsNotExist(err) {
			t.Errorf("second Delete: expected ErrNotExist, got %v", err)
		}
	})

	t.Run("move", func(t *testing.T) {
		s := newStore(t)
		mustWrite(t, s, "staging/tmp", "payload")

		if err := s.Move(ctx, "staging/tmp", "blobs/final"); err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		if exists, _ := s.Exists(ctx, "staging/tmp"); exists {
			t.Error("source still exists after Move")
		}
		if got := mustRead(t, s, "blobs/final"); got != "payload" {
			t.Errorf("moved content = %q, want %q", got, "payload")
		}

		if err := s.Move(ctx, "staging/missing", "blobs/other"); !filecenter.IsNotExist(err) {
			t.Errorf("Move of missing blob: expected ErrNotExist, got %v", err)
		}
	})

	t.Run("list by prefix", func(t *testing.T) {
		s := newStore(t)
		mustWrite(t, s, "blobs/a", "1")
		mustWrite(t, s, "blobs/b", "22")
		mustWrite(t, s, "staging/c", "333")

		blobs, err := s.List(ctx, "blobs/")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(blobs) != 2 {
			t.Fatalf("List returned %d blobs, want 2: %+v", len(blobs), blobs)
		}

		keys := map[string]int64{}
		for _, b := range blobs {
			keys[b.Key] = b.Size
		}
		if keys["blobs/a"] != 1 || keys["blobs/b"] != 2 {
			t.Errorf("unexpected listing: %+v", keys)
		}

		empty, err := s.List(ctx, "nothing/")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("List of empty prefix returned %d blobs", len(empty))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := s.Write(cctx, "blobs/a", strings.NewReader("x")); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func mustWrite(t *testing.T, s filecenter.BlobStore, key, content string) {
	t.Helper()
	if _, err := s.Write(context.Background(), key, strings.NewReader(content)); err != nil {
		t.Fatalf("Write %s failed: %v", key, err)
	}
}

func mustRead(t *testing.T, s filecenter.BlobStore, key string) string {
	t.Helper()
	rc, err := s.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read %s failed: %v", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll %s failed: %v", key, err)
	}
	return string(data)
}
