package keys_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/npk/keys"
	"xdao.co/npk/npk"
)

func seed(b byte) []byte {
	s := make([]byte, keys.SeedSize)
	for i := range s {
		s[i] = b ^ byte(i)
	}
	return s
}

func TestSignAndVerifyPackage(t *testing.T) {
	for _, suite := range []keys.Suite{
		keys.DefaultSuite,
		{Legacy: keys.SchemeSecp256k1, Modern: keys.SchemeDilithium3},
	} {
		t.Run(string(suite.Modern), func(t *testing.T) {
			legacy, modern, err := suite.Signers(seed(1), seed(2))
			require.NoError(t, err)

			signer, err := npk.NewSigner(legacy, modern)
			require.NoError(t, err)

			pkg, err := npk.New(
				npk.NewPart(npk.PartHeader, []byte("meta")),
				npk.NewPart(npk.PartContent, []byte("hello world")),
			)
			require.NoError(t, err)
			require.NoError(t, signer.Sign(pkg))

			lv, err := keys.NewVerifier(suite.Legacy, legacy.PublicKey())
			require.NoError(t, err)
			mv, err := keys.NewVerifier(suite.Modern, modern.PublicKey())
			require.NoError(t, err)
			verifier, err := npk.NewVerifier(lv, mv)
			require.NoError(t, err)

			reparsed, err := npk.Parse(pkg.Bytes())
			require.NoError(t, err)
			require.NoError(t, verifier.Verify(reparsed))

			reparsed.ReplacePart(npk.PartHeader, []byte("changed"))
			require.True(t, npk.IsKind(verifier.Verify(reparsed), npk.KindVerify))
		})
	}
}

// failingSigner simulates a backend whose key cannot be used.
type failingSigner struct{}

func (failingSigner) Scheme() string { return "broken" }

func (failingSigner) Sign([]byte) ([]byte, error) {
	return nil, keys.ErrInvalidKey
}

func TestSignPropagatesInvalidKey(t *testing.T) {
	legacy, err := keys.NewLegacySigner(seed(1))
	require.NoError(t, err)

	signer, err := npk.NewSigner(legacy, failingSigner{})
	require.NoError(t, err)

	pkg, err := npk.New(npk.NewPart(npk.PartContent, []byte("x")))
	require.NoError(t, err)
	before := pkg.Bytes()

	err = signer.Sign(pkg)
	require.True(t, errors.Is(err, keys.ErrInvalidKey))
	require.Equal(t, "NPK-SIGN-002", npk.RuleID(err))
	require.Equal(t, before, pkg.Bytes())
}
