// Package bundle moves packages between stores as a deterministic TAR
// archive:
//
//	packages/<cid>.npk   one entry per package
//	index.json           optional, non-authoritative listing
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/npk/cidutil"
	"xdao.co/npk/npk"
	"xdao.co/npk/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

const (
	entryPrefix = "packages/"
	entrySuffix = ".npk"
	indexName   = "index.json"
)

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names to CIDs.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a TAR bundle holding the packages for ids.
//
// Entry order is lexicographic by CID and headers are normalized, so the
// same set of packages always yields the same bytes. Every package is
// checked against its CID and must parse.
func Export(ctx context.Context, w io.Writer, s storage.Store, ids []cid.Cid, opts ExportOptions) error {
	if s == nil {
		return fmt.Errorf("bundle: nil store")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	cidStrings := make([]string, 0, len(uniq))
	for str := range uniq {
		cidStrings = append(cidStrings, str)
	}
	sort.Strings(cidStrings)

	tw := tar.NewWriter(w)
	defer tw.Close()

	entries := make([]indexEntry, 0, len(cidStrings))
	for _, str := range cidStrings {
		id := uniq[str]
		pkg, err := storage.GetPackage(ctx, s, id)
		if err != nil {
			return fmt.Errorf("bundle: %s: %w", str, err)
		}
		b := pkg.Bytes()
		if err := cidutil.Check(id, b); err != nil {
			return storage.ErrCIDMismatch
		}
		if err := writeFile(tw, entryPrefix+str+entrySuffix, b); err != nil {
			return err
		}
		entries = append(entries, indexEntry{CID: str, Size: len(b), Digest: pkg.Digest().String(), Signed: isSigned(pkg)})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:  FormatVersion,
			Packages: entries,
		}

		if len(opts.Labels) > 0 {
			names := make([]string, 0, len(opts.Labels))
			for k := range opts.Labels {
				names = append(names, k)
			}
			sort.Strings(names)

			labels := make([]indexLabel, 0, len(names))
			for _, k := range names {
				if k == "" {
					return fmt.Errorf("bundle: empty label key")
				}
				v := opts.Labels[k]
				if !v.Defined() {
					return storage.ErrInvalidCID
				}
				labels = append(labels, indexLabel{Name: k, CID: v.String()})
			}
			idx.Labels = labels
		}

		b, err := json.Marshal(idx)
		if err != nil {
			return err
		}
		if err := writeFile(tw, indexName, append(b, '\n')); err != nil {
			return err
		}
	}

	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown skips unknown TAR entries instead of failing.
	IgnoreUnknown bool
}

// Import reads a bundle from r and stores every package into s, returning
// the imported CIDs in bundle order.
//
// Each entry must hash to the CID in its name and parse as a package.
// Unknown entries are an error unless opts.IgnoreUnknown is set.
func Import(ctx context.Context, r io.Reader, s storage.Store, opts ImportOptions) ([]cid.Cid, error) {
	if s == nil {
		return nil, fmt.Errorf("bundle: nil store")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var imported []cid.Cid

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		if name == indexName {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, entryPrefix) || !strings.HasSuffix(name, entrySuffix) {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, err := cidutil.Parse(strings.TrimSuffix(strings.TrimPrefix(name, entryPrefix), entrySuffix))
		if err != nil {
			return imported, storage.ErrInvalidCID
		}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return imported, err
		}
		if err := cidutil.Check(id, payload); err != nil {
			return imported, storage.ErrCIDMismatch
		}
		if err := storage.CheckPackage(payload); err != nil {
			return imported, fmt.Errorf("bundle: %s: %w", name, err)
		}

		key := id.String()
		if _, ok := seen[key]; ok {
			return imported, fmt.Errorf("bundle: duplicate package entry: %s", key)
		}
		seen[key] = struct{}{}

		putID, err := s.Put(ctx, payload)
		if err != nil {
			return imported, err
		}
		if !putID.Equals(id) {
			return imported, storage.ErrCIDMismatch
		}
		imported = append(imported, id)
	}
}

type indexJSON struct {
	Version  int          `json:"version"`
	Packages []indexEntry `json:"packages"`
	Labels   []indexLabel `json:"labels,omitempty"`
}

type indexEntry struct {
	CID    string `json:"cid"`
	Size   int    `json:"size"`
	Digest string `json:"digest"`
	Signed bool   `json:"signed"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func isSigned(pkg *npk.Package) bool {
	_, legacy := pkg.Part(npk.PartLegacySignature)
	_, modern := pkg.Part(npk.PartModernSignature)
	return legacy && modern
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return strings.Join(parts, "/")
}
