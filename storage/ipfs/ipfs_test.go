package ipfs

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"xdao.co/npk/storage"
	"xdao.co/npk/storage/registry"
	"xdao.co/npk/storage/testkit"
)

func TestIPFS_Conformance(t *testing.T) {
	bin, err := exec.LookPath("ipfs")
	if err != nil {
		t.Skip("ipfs binary not installed")
	}
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		repo := t.TempDir()
		cmd := exec.Command(bin, "init", "--profile=test")
		cmd.Env = append(cmd.Environ(), "IPFS_PATH="+repo)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("ipfs init: %v: %s", err, out)
		}
		return New(Options{Bin: bin, RepoPath: repo})
	})
}

func TestIPFS_MissingBinary(t *testing.T) {
	s := New(Options{Bin: filepath.Join(t.TempDir(), "no-such-ipfs")})
	if _, err := s.Put(context.Background(), []byte("x")); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}

func TestIsLikelyNotFound(t *testing.T) {
	if !isLikelyNotFound(errors.New("ipfs: block was not found locally (offline)")) {
		t.Fatalf("expected not-found match")
	}
	if isLikelyNotFound(errors.New("ipfs: permission denied")) {
		t.Fatalf("unexpected not-found match")
	}
}

func TestIPFS_Registered(t *testing.T) {
	s, err := registry.Open("ipfs", registry.UsageCLI, registry.Options{"pin": "true", "repo": "/tmp/repo"}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	st := s.(*Store)
	if !st.pin || st.bin != "ipfs" {
		t.Fatalf("unexpected store config: %+v", st)
	}
	if _, err := registry.Open("ipfs", registry.UsageCLI, registry.Options{"pin": "maybe"}, nil); err == nil {
		t.Fatalf("expected invalid bool error")
	}
}
