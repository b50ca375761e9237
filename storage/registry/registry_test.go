package registry

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"xdao.co/npk/storage"
	"xdao.co/npk/storage/testkit"
)

var opened = map[string]*testkit.MemStore{}

func init() {
	for _, name := range []string{"test-mem-a", "test-mem-b"} {
		name := name
		MustRegister(Backend{
			Name:    name,
			Usage:   UsageCLI,
			Options: []Option{{Key: "label", Description: "ignored"}},
			Open: func(opts Options, logger *zap.Logger) (storage.Store, error) {
				s := testkit.NewMemStore()
				opened[name] = s
				return s, nil
			},
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	if err := Register(Backend{}); err == nil {
		t.Fatalf("expected error for empty backend")
	}
	err := Register(Backend{Name: "test-mem-a", Usage: UsageCLI, Open: func(Options, *zap.Logger) (storage.Store, error) { return nil, nil }})
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate registration error, got %v", err)
	}
}

func TestOpen_UsageAndOptions(t *testing.T) {
	if _, err := Open("test-mem-a", UsageDaemon, nil, nil); err == nil {
		t.Fatalf("expected usage mismatch error")
	}
	if _, err := Open("nope", UsageCLI, nil, nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := Open("test-mem-a", UsageCLI, Options{"bogus": "1"}, nil); err == nil {
		t.Fatalf("expected unknown option error")
	}
	s, err := Open("test-mem-a", UsageCLI, Options{"label": "x"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s == nil {
		t.Fatalf("nil store")
	}
}

func TestNames_FilteredByUsage(t *testing.T) {
	names := strings.Join(Names(UsageCLI), ",")
	if !strings.Contains(names, "test-mem-a,test-mem-b") {
		t.Fatalf("unexpected names: %s", names)
	}
	for _, n := range Names(UsageDaemon) {
		if strings.HasPrefix(n, "test-mem") {
			t.Fatalf("CLI-only backend listed for daemon: %s", n)
		}
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions([]string{"dir=/tmp/x", " timeout = 2s "})
	if err != nil {
		t.Fatalf("ParseOptions failed: %v", err)
	}
	if opts.String("dir", "") != "/tmp/x" {
		t.Fatalf("dir: got %q", opts["dir"])
	}
	if d, err := opts.Duration("timeout", 0); err != nil || d.String() != "2s" {
		t.Fatalf("timeout: got %v, %v", d, err)
	}
	if _, err := opts.Require("missing"); err == nil {
		t.Fatalf("expected Require error")
	}
	if _, err := ParseOptions([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for pair without '='")
	}
}

func TestConfig_OpenWritePolicies(t *testing.T) {
	ctx := context.Background()
	data := testkit.SamplePackage(t, "config").Bytes()

	cfg := Config{Backends: []BackendConfig{{Name: "test-mem-a"}, {Name: "test-mem-b"}}}
	s, err := cfg.Open(UsageCLI, "test-mem-b", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := s.(storage.MultiStore); !ok {
		t.Fatalf("expected MultiStore, got %T", s)
	}
	if _, err := s.Put(ctx, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if opened["test-mem-b"].Len() != 1 || opened["test-mem-a"].Len() != 0 {
		t.Fatalf("preferred backend must receive the write")
	}

	cfg.WritePolicy = "all"
	s, err = cfg.Open(UsageCLI, "", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Put(ctx, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if opened["test-mem-a"].Len() != 1 || opened["test-mem-b"].Len() != 1 {
		t.Fatalf("write_policy=all must write every backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []Config{
		{},
		{Backends: []BackendConfig{{}}},
		{Backends: []BackendConfig{{Name: "a"}, {Name: "a"}}},
		{WritePolicy: "some", Backends: []BackendConfig{{Name: "a"}}},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	ok := Config{Backends: []BackendConfig{{Name: "a"}, {Name: "a", ID: "a2"}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
