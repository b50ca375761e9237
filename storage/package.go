package storage

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/npk/npk"
)

// PutPackage validates pkg and stores its serialized bytes.
func PutPackage(ctx context.Context, s Store, pkg *npk.Package) (cid.Cid, error) {
	if err := pkg.Validate(); err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	return s.Put(ctx, pkg.Bytes())
}

// GetPackage fetches id and parses it as a package.
func GetPackage(ctx context.Context, s Store, id cid.Cid) (*npk.Package, error) {
	data, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pkg, err := npk.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	return pkg, nil
}

// CheckPackage reports ErrInvalidPackage unless data parses as a package
// without duplicate known parts.
func CheckPackage(data []byte) error {
	pkg, err := npk.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	if err := pkg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	return nil
}
