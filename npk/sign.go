package npk

import (
	"fmt"
)

// SchemeSigner produces a signature over a message with a private key held by
// the implementation. The legacy signer receives LegacyMessageSize bytes, the
// modern signer DigestSize bytes.
type SchemeSigner interface {
	Scheme() string
	Sign(message []byte) ([]byte, error)
}

// SchemeVerifier checks a signature over a message against a public key held
// by the implementation.
type SchemeVerifier interface {
	Scheme() string
	Verify(message, signature []byte) (bool, error)
}

// Signer runs the digest-and-sign protocol with two fixed backends.
type Signer struct {
	legacy SchemeSigner
	modern SchemeSigner
}

// NewSigner binds the legacy and modern signing backends.
func NewSigner(legacy, modern SchemeSigner) (*Signer, error) {
	if legacy == nil {
		return nil, newError(KindSigning, "NPK-SIGN-003", "missing legacy signing backend")
	}
	if modern == nil {
		return nil, newError(KindSigning, "NPK-SIGN-003", "missing modern signing backend")
	}
	return &Signer{legacy: legacy, modern: modern}, nil
}

// Sign computes the package digest, obtains a legacy signature over its first
// 20 bytes and a modern signature over all 32, and installs both with
// ReplacePart. The backends are called in that order. If either call fails
// the package is left unmodified.
func (s *Signer) Sign(p *Package) error {
	if err := p.Validate(); err != nil {
		return err
	}
	d := p.Digest()

	legacySig, err := s.legacy.Sign(d.LegacyMessage())
	if err != nil {
		return wrapError(KindSigning, "NPK-SIGN-001",
			fmt.Sprintf("legacy signing backend %s failed", s.legacy.Scheme()), err)
	}
	modernSig, err := s.modern.Sign(d.ModernMessage())
	if err != nil {
		return wrapError(KindSigning, "NPK-SIGN-002",
			fmt.Sprintf("modern signing backend %s failed", s.modern.Scheme()), err)
	}

	p.ReplacePart(PartLegacySignature, legacySig)
	p.ReplacePart(PartModernSignature, modernSig)
	return nil
}

// Verifier checks both signatures of a package.
type Verifier struct {
	legacy SchemeVerifier
	modern SchemeVerifier
}

func NewVerifier(legacy, modern SchemeVerifier) (*Verifier, error) {
	if legacy == nil || modern == nil {
		return nil, newError(KindVerify, "NPK-VERIFY-003", "missing verification backend")
	}
	return &Verifier{legacy: legacy, modern: modern}, nil
}

// Verify recomputes the digest and checks the legacy and modern signature
// parts against it. Both signatures must be present and valid.
func (v *Verifier) Verify(p *Package) error {
	if err := p.Validate(); err != nil {
		return err
	}
	legacyPart, ok := p.Part(PartLegacySignature)
	if !ok {
		return newError(KindVerify, "NPK-VERIFY-001", "missing legacy signature part")
	}
	modernPart, ok := p.Part(PartModernSignature)
	if !ok {
		return newError(KindVerify, "NPK-VERIFY-002", "missing modern signature part")
	}
	d := p.Digest()

	valid, err := v.legacy.Verify(d.LegacyMessage(), legacyPart.Payload())
	if err != nil {
		return wrapError(KindVerify, "NPK-VERIFY-201",
			fmt.Sprintf("legacy verification backend %s failed", v.legacy.Scheme()), err)
	}
	if !valid {
		return newError(KindVerify, "NPK-VERIFY-101", "legacy signature invalid")
	}
	valid, err = v.modern.Verify(d.ModernMessage(), modernPart.Payload())
	if err != nil {
		return wrapError(KindVerify, "NPK-VERIFY-202",
			fmt.Sprintf("modern verification backend %s failed", v.modern.Scheme()), err)
	}
	if !valid {
		return newError(KindVerify, "NPK-VERIFY-102", "modern signature invalid")
	}
	return nil
}
