package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdao.co/npk/cidutil"
	"xdao.co/npk/storage"
	"xdao.co/npk/storage/registry"
	"xdao.co/npk/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		t.Helper()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestLocalFS_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	id, err := s.Put(context.Background(), testkit.SamplePackage(t, "layout").Bytes())
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	str := id.String()
	want := filepath.Join(dir, str[:2], str+".npk")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected object at %s: %v", want, err)
	}
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	orig := testkit.SamplePackage(t, "original").Bytes()
	id, err := s.Put(ctx, orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored object out-of-band.
	path := s.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := s.Get(ctx, id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, storage.ErrCIDMismatch)
	}

	// Put must not "repair" or overwrite the corrupted object.
	if _, err := s.Put(ctx, orig); err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}

	if err := cidutil.Check(id, orig); err != nil {
		t.Fatalf("CID no longer matches the original bytes: %v", err)
	}
}

func TestLocalFS_CanceledContext(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, []byte("x")); err != context.Canceled {
		t.Fatalf("Put: got %v want context.Canceled", err)
	}
}

func TestLocalFS_Registered(t *testing.T) {
	if _, err := registry.Open("localfs", registry.UsageCLI, nil, nil); err == nil || !strings.Contains(err.Error(), "dir") {
		t.Fatalf("expected missing dir error, got %v", err)
	}
	s, err := registry.Open("localfs", registry.UsageDaemon, registry.Options{"dir": t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := s.(*Store); !ok {
		t.Fatalf("unexpected store type %T", s)
	}
}
