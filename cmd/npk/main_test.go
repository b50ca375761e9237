package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/npk/npk"
)

const rootSeedHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func newPackageFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "app.npk")
	code, _, stderr := runCLI(t, "set-part", "--out", path, "--id", "header", "--text", "name=app")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "set-part", "--in", path, "--id", "2", "--text", "hello world")
	require.Equal(t, 0, code, stderr)
	return path
}

func TestRun_Usage(t *testing.T) {
	code, _, _ := runCLI(t)
	require.Equal(t, 2, code)

	code, out, _ := runCLI(t, "help")
	require.Equal(t, 0, code)
	require.Contains(t, out, "npk sign")

	code, _, stderr := runCLI(t, "frobnicate")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "unknown command")
}

func TestSetPartInspectDigestCID(t *testing.T) {
	t.Setenv("NPK_CONFIG", "")
	path := newPackageFile(t, t.TempDir())

	pkg, err := npk.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, pkg.Len())

	code, out, _ := runCLI(t, "inspect", path)
	require.Equal(t, 0, code)
	require.Contains(t, out, "header")
	require.Contains(t, out, "content")
	require.Contains(t, out, "signed: false")
	require.Contains(t, out, pkg.Digest().String())

	code, out, _ = runCLI(t, "digest", path)
	require.Equal(t, 0, code)
	require.Equal(t, pkg.Digest().String()+"\n", out)

	want, err := pkg.CID()
	require.NoError(t, err)
	code, out, _ = runCLI(t, "cid", path)
	require.Equal(t, 0, code)
	require.Equal(t, want+"\n", out)

	code, _, _ = runCLI(t, "set-part", "--out", path, "--id", "2")
	require.Equal(t, 2, code, "payload source required")
	code, _, _ = runCLI(t, "set-part", "--out", path, "--id", "nope", "--text", "x")
	require.Equal(t, 2, code)
	code, _, _ = runCLI(t, "inspect", filepath.Join(t.TempDir(), "missing.npk"))
	require.Equal(t, 1, code)
}

func TestSignAndVerify(t *testing.T) {
	t.Setenv("NPK_CONFIG", "")
	dir := t.TempDir()
	keyDir := filepath.Join(dir, "keys")
	path := newPackageFile(t, dir)
	before, err := npk.LoadFile(path)
	require.NoError(t, err)

	code, out, stderr := runCLI(t, "sign", "--in", path, "--key-dir", keyDir, "--name", "release")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, out, "digest: "+before.Digest().String())
	require.Contains(t, stderr, "generated signing key")

	signed, err := npk.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 4, signed.Len())
	require.Equal(t, before.Digest(), signed.Digest(), "signatures are excluded from the digest")

	code, out, stderr = runCLI(t, "verify", "--in", path, "--key-dir", keyDir, "--name", "release")
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "OK\n", out)

	code, legacyPub, _ := runCLI(t, "key", "export", "--key-dir", keyDir, "--name", "release", "--scheme", "secp256k1")
	require.Equal(t, 0, code)
	code, modernPub, _ := runCLI(t, "key", "export", "--key-dir", keyDir, "--name", "release", "--scheme", "ed25519")
	require.Equal(t, 0, code)
	code, _, stderr = runCLI(t, "verify", "--in", path,
		"--legacy-pub", strings.TrimSpace(legacyPub), "--modern-pub", strings.TrimSpace(modernPub))
	require.Equal(t, 0, code, stderr)

	// Re-signing overwrites in place and keeps the part count.
	code, _, stderr = runCLI(t, "sign", "--in", path, "--key-dir", keyDir, "--name", "release")
	require.Equal(t, 0, code, stderr)
	resigned, err := npk.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 4, resigned.Len())

	code, _, stderr = runCLI(t, "set-part", "--in", path, "--id", "content", "--text", "tampered")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "verify", "--in", path, "--key-dir", keyDir, "--name", "release")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "NPK-VERIFY-101")

	code, _, _ = runCLI(t, "verify", "--in", path)
	require.Equal(t, 2, code, "a key source is required")
}

func TestSign_Dilithium(t *testing.T) {
	t.Setenv("NPK_CONFIG", "")
	dir := t.TempDir()
	keyDir := filepath.Join(dir, "keys")
	path := newPackageFile(t, dir)
	out := filepath.Join(dir, "signed.npk")

	code, _, stderr := runCLI(t, "sign", "--in", path, "--out", out, "--key-dir", keyDir, "--modern", "dilithium3")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "verify", "--in", out, "--key-dir", keyDir, "--name", "default", "--modern", "dilithium3")
	require.Equal(t, 0, code, stderr)

	code, _, _ = runCLI(t, "sign", "--in", path, "--key-dir", keyDir, "--modern", "secp256k1")
	require.Equal(t, 2, code)
}

func TestSign_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "npk.yaml")
	keyDir := filepath.Join(dir, "keys")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  format: json\nkeys:\n  dir: "+keyDir+"\n  name: ci\n"), 0o644))
	path := newPackageFile(t, dir)

	code, _, stderr := runCLI(t, "sign", "--config", cfgPath, "--in", path)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stderr, `"msg":"signed package"`)
	_, err := os.Stat(filepath.Join(keyDir, "ci", "ed25519.key"))
	require.NoError(t, err)
}

func TestKeyInit_Deterministic(t *testing.T) {
	t.Setenv("NPK_CONFIG", "")
	a, b := t.TempDir(), t.TempDir()

	code, outA, stderr := runCLI(t, "key", "init", "--key-dir", a, "--name", "release", "--seed-hex", rootSeedHex)
	require.Equal(t, 0, code, stderr)
	code, outB, stderr := runCLI(t, "key", "init", "--key-dir", b, "--name", "release", "--seed-hex", rootSeedHex)
	require.Equal(t, 0, code, stderr)

	firstLine := func(s string) string { return strings.SplitN(s, "\n", 2)[0] }
	require.Equal(t, firstLine(outA), firstLine(outB))

	code, _, _ = runCLI(t, "key", "init", "--key-dir", a, "--name", "release", "--seed-hex", rootSeedHex)
	require.Equal(t, 1, code, "existing keys need --force")
	code, _, _ = runCLI(t, "key", "init", "--key-dir", a, "--name", "release", "--seed-hex", rootSeedHex, "--force")
	require.Equal(t, 0, code)

	code, out, _ := runCLI(t, "key", "list", "--key-dir", a)
	require.Equal(t, 0, code)
	require.Equal(t, "release\ted25519,secp256k1\n", out)

	code, _, _ = runCLI(t, "key", "init", "--key-dir", a, "--name", "bad/name")
	require.Equal(t, 2, code)
}

func TestStore_PutGetExportImport(t *testing.T) {
	t.Setenv("NPK_CONFIG", "")
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "store")
	path := newPackageFile(t, dir)

	code, out, stderr := runCLI(t, "store", "put", "--backend", "localfs", "--opt", "dir="+storeDir, path)
	require.Equal(t, 0, code, stderr)
	id := strings.TrimSpace(out)

	pkg, err := npk.LoadFile(path)
	require.NoError(t, err)
	want, err := pkg.CID()
	require.NoError(t, err)
	require.Equal(t, want, id)

	code, out, stderr = runCLI(t, "store", "get", "--backend", "localfs", "--opt", "dir="+storeDir, id)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, pkg.Bytes(), []byte(out))

	bundlePath := filepath.Join(dir, "release.tar")
	code, _, stderr = runCLI(t, "store", "export", "--backend", "localfs", "--opt", "dir="+storeDir, "--out", bundlePath, id)
	require.Equal(t, 0, code, stderr)

	otherDir := filepath.Join(dir, "other")
	code, out, stderr = runCLI(t, "store", "import", "--backend", "localfs", "--opt", "dir="+otherDir, bundlePath)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, id+"\n", out)

	code, _, _ = runCLI(t, "store", "get", "--backend", "localfs", "--opt", "dir="+storeDir, "not-a-cid")
	require.Equal(t, 2, code)
	code, _, _ = runCLI(t, "store", "put", path)
	require.Equal(t, 2, code, "no backend configured")

	code, out, _ = runCLI(t, "store", "backends")
	require.Equal(t, 0, code)
	require.Contains(t, out, "localfs")
	require.Contains(t, out, "grpc")
}

// syncBuffer counts Sync calls made by the logger writing to it.
type syncBuffer struct {
	bytes.Buffer
	syncs int
}

func (b *syncBuffer) Sync() error {
	b.syncs++
	return nil
}

func TestStore_SyncsLogger(t *testing.T) {
	t.Setenv("NPK_CONFIG", "")
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "store")
	path := newPackageFile(t, dir)
	backend := []string{"--backend", "localfs", "--opt", "dir=" + storeDir}

	runSynced := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		errOut := &syncBuffer{}
		code := run(args, &out, errOut)
		require.Equal(t, 0, code, errOut.String())
		require.Positive(t, errOut.syncs, "logger not synced for %s", args[1])
		return out.String()
	}

	id := strings.TrimSpace(runSynced(append([]string{"store", "put"}, append(backend, path)...)...))
	runSynced(append([]string{"store", "get"}, append(backend, id)...)...)
	bundlePath := filepath.Join(dir, "release.tar")
	runSynced(append([]string{"store", "export"}, append(backend, "--out", bundlePath, id)...)...)
	runSynced("store", "import", "--backend", "localfs", "--opt", "dir="+filepath.Join(dir, "other"), bundlePath)
}
