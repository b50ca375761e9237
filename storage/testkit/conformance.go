// Package testkit holds a conformance suite every storage.Store backend is
// expected to pass, plus an in-memory store.
package testkit

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/npk/cidutil"
	"xdao.co/npk/npk"
	"xdao.co/npk/storage"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

// SamplePackage returns a small package with a header, content and one
// unknown part.
func SamplePackage(t *testing.T, content string) *npk.Package {
	t.Helper()
	pkg, err := npk.New(
		npk.NewPart(npk.PartHeader, []byte("name=sample")),
		npk.NewPart(npk.PartContent, []byte(content)),
		npk.NewPart(npk.PartID(77), []byte{0x01, 0x02}),
	)
	if err != nil {
		t.Fatalf("npk.New failed: %v", err)
	}
	return pkg
}

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := SamplePackage(t, "hello, npk storage").Bytes()

		id, err := s.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.Sum(want)
		if err != nil {
			t.Fatalf("cidutil.Sum failed: %v", err)
		}
		if !id.Equals(wantID) {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
		if err := cidutil.Check(id, got); err != nil {
			t.Fatalf("Get returned bytes not matching requested CID: %v", err)
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := SamplePackage(t, "same bytes").Bytes()

		id1, err := s.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := s.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if !id1.Equals(id2) {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := SamplePackage(t, "missing").Bytes()
		id, err := cidutil.Sum(b)
		if err != nil {
			t.Fatalf("cidutil.Sum failed: %v", err)
		}

		ok, err := s.Has(ctx, id)
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if ok {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := s.Get(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := s.Put(ctx, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ok, err = s.Has(ctx, id)
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if !ok {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if ok, _ := s.Has(ctx, undef); ok {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := s.Get(ctx, undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("PackageRoundTrip", func(t *testing.T) {
		s := newStore(t)
		pkg := SamplePackage(t, "package round trip")

		id, err := storage.PutPackage(ctx, s, pkg)
		if err != nil {
			t.Fatalf("PutPackage failed: %v", err)
		}
		want, err := pkg.CID()
		if err != nil {
			t.Fatalf("CID failed: %v", err)
		}
		if id.String() != want {
			t.Fatalf("PutPackage CID: got %s want %s", id, want)
		}

		got, err := storage.GetPackage(ctx, s, id)
		if err != nil {
			t.Fatalf("GetPackage failed: %v", err)
		}
		if !bytes.Equal(got.Bytes(), pkg.Bytes()) {
			t.Fatalf("GetPackage bytes mismatch")
		}
		if got.Digest() != pkg.Digest() {
			t.Fatalf("GetPackage digest mismatch")
		}
	})
}
