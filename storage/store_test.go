package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/npk/cidutil"
	"xdao.co/npk/npk"
	"xdao.co/npk/storage"
	"xdao.co/npk/storage/testkit"
)

func TestMultiStore_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return storage.MultiStore{Stores: []storage.Store{testkit.NewMemStore(), testkit.NewMemStore()}}
	})
}

func TestReplicatingStore_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return storage.ReplicatingStore{Backends: []storage.NamedStore{
			{Name: "a", Store: testkit.NewMemStore()},
			{Name: "b", Store: testkit.NewMemStore()},
		}}
	})
}

func TestMultiStore_FallbackAndFirstWrite(t *testing.T) {
	ctx := context.Background()
	first, second := testkit.NewMemStore(), testkit.NewMemStore()
	m := storage.MultiStore{Stores: []storage.Store{first, second}}

	data := testkit.SamplePackage(t, "only in second").Bytes()
	id, err := second.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := m.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get via fallback failed: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("fallback bytes mismatch")
	}

	if _, err := m.Put(ctx, testkit.SamplePackage(t, "new").Bytes()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if first.Len() != 1 || second.Len() != 1 {
		t.Fatalf("Put must write only to the first store: first=%d second=%d", first.Len(), second.Len())
	}

	if _, err := (storage.MultiStore{}).Put(ctx, data); err == nil {
		t.Fatalf("expected error for empty MultiStore")
	}
}

type wrongCIDStore struct{ *testkit.MemStore }

func (w wrongCIDStore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if _, err := w.MemStore.Put(ctx, data); err != nil {
		return cid.Undef, err
	}
	return cidutil.Sum([]byte("something else"))
}

func TestReplicatingStore_PutAll(t *testing.T) {
	ctx := context.Background()
	a, b := testkit.NewMemStore(), testkit.NewMemStore()
	r := storage.ReplicatingStore{Backends: []storage.NamedStore{{Name: "a", Store: a}, {Name: "b", Store: b}}}

	data := testkit.SamplePackage(t, "replicated").Bytes()
	id, perBackend, err := r.PutAll(ctx, data)
	if err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	if len(perBackend) != 2 || !perBackend["a"].Equals(id) || !perBackend["b"].Equals(id) {
		t.Fatalf("unexpected per-backend CIDs: %v", perBackend)
	}
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("expected both backends written")
	}

	bad := storage.ReplicatingStore{Backends: []storage.NamedStore{{Name: "bad", Store: wrongCIDStore{testkit.NewMemStore()}}}}
	if _, err := bad.Put(ctx, data); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}

func TestPutPackage_RejectsDuplicateKnownParts(t *testing.T) {
	ctx := context.Background()
	data := append(npk.NewPart(npk.PartContent, []byte("a")).Bytes(), npk.NewPart(npk.PartContent, []byte("b")).Bytes()...)
	pkg, err := npk.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	s := testkit.NewMemStore()
	if _, err := storage.PutPackage(ctx, s, pkg); !errors.Is(err, storage.ErrInvalidPackage) {
		t.Fatalf("expected ErrInvalidPackage, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("invalid package must not be stored")
	}
	if err := storage.CheckPackage(data); !errors.Is(err, storage.ErrInvalidPackage) {
		t.Fatalf("CheckPackage: expected ErrInvalidPackage, got %v", err)
	}
}

func TestGetPackage_RejectsMalformedBytes(t *testing.T) {
	ctx := context.Background()
	s := testkit.NewMemStore()

	// A valid header announcing a payload longer than what follows.
	id, err := s.Put(ctx, []byte{0, 0, 0, 2, 0, 0, 0, 9, 'x'})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := storage.GetPackage(ctx, s, id); !errors.Is(err, storage.ErrInvalidPackage) {
		t.Fatalf("expected ErrInvalidPackage, got %v", err)
	}
}
