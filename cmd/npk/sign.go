package main

import (
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"xdao.co/npk/keys"
	"xdao.co/npk/npk"
)

func cmdSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var e env
	var inPath, outPath, name, legacy, modern string
	e.register(fs)
	fs.StringVar(&inPath, "in", "", "Package to sign")
	fs.StringVar(&outPath, "out", "", "Output package (default: --in)")
	fs.StringVar(&name, "name", "", "Key name (default from config)")
	fs.StringVar(&legacy, "legacy", "", "Legacy scheme (secp256k1)")
	fs.StringVar(&modern, "modern", "", "Modern scheme (ed25519, dilithium3)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inPath == "" {
		fmt.Fprintln(errOut, "missing --in")
		return 2
	}
	if outPath == "" {
		outPath = inPath
	}

	cfg, logger, err := e.load(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()
	if name != "" {
		cfg.Keys.Name = name
	}
	if legacy != "" {
		cfg.Keys.Legacy = legacy
	}
	if modern != "" {
		cfg.Keys.Modern = modern
	}
	suite, err := cfg.Keys.Suite()
	if err != nil {
		fmt.Fprintf(errOut, "invalid scheme: %v\n", err)
		return 2
	}

	pkg, err := npk.LoadFile(inPath)
	if err != nil {
		fmt.Fprintf(errOut, "load --in: %v\n", err)
		return 1
	}

	ks, err := openKeyStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	legacySigner, modernSigner, err := ks.Signers(cfg.Keys.Name, suite)
	if err != nil {
		fmt.Fprintf(errOut, "load signing keys: %v\n", err)
		return 1
	}
	signer, err := npk.NewSigner(legacySigner, modernSigner)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 1
	}
	if err := signer.Sign(pkg); err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	if err := pkg.SaveFile(outPath); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}

	digest := pkg.Digest()
	logger.Info("signed package",
		zap.String("path", outPath),
		zap.String("digest", digest.String()),
		zap.String("legacy", legacySigner.Scheme()),
		zap.String("modern", modernSigner.Scheme()),
	)
	fmt.Fprintf(out, "digest: %s\n", digest)
	fmt.Fprintf(out, "legacy: %s\n", keys.EncodePublicKey(suite.Legacy, legacySigner.PublicKey()))
	fmt.Fprintf(out, "modern: %s\n", keys.EncodePublicKey(suite.Modern, modernSigner.PublicKey()))
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var e env
	var inPath, legacyPub, modernPub, name, legacy, modern string
	e.register(fs)
	fs.StringVar(&inPath, "in", "", "Package to verify")
	fs.StringVar(&legacyPub, "legacy-pub", "", "Legacy public key <scheme>:<base64>")
	fs.StringVar(&modernPub, "modern-pub", "", "Modern public key <scheme>:<base64>")
	fs.StringVar(&name, "name", "", "Verify against keys in the local key store")
	fs.StringVar(&legacy, "legacy", "", "Legacy scheme when using --name")
	fs.StringVar(&modern, "modern", "", "Modern scheme when using --name")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inPath == "" {
		fmt.Fprintln(errOut, "missing --in")
		return 2
	}
	usePub := legacyPub != "" || modernPub != ""
	if usePub == (name != "") {
		fmt.Fprintln(errOut, "use either --legacy-pub/--modern-pub or --name")
		return 2
	}
	if usePub && (legacyPub == "" || modernPub == "") {
		fmt.Fprintln(errOut, "both --legacy-pub and --modern-pub are required")
		return 2
	}

	cfg, logger, err := e.load(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	if !usePub {
		if legacy != "" {
			cfg.Keys.Legacy = legacy
		}
		if modern != "" {
			cfg.Keys.Modern = modern
		}
		suite, err := cfg.Keys.Suite()
		if err != nil {
			fmt.Fprintf(errOut, "invalid scheme: %v\n", err)
			return 2
		}
		ks, err := openKeyStore(cfg, logger)
		if err != nil {
			fmt.Fprintf(errOut, "keys: %v\n", err)
			return 1
		}
		if legacyPub, err = ks.Export(name, suite.Legacy); err != nil {
			fmt.Fprintf(errOut, "export legacy key: %v\n", err)
			return 1
		}
		if modernPub, err = ks.Export(name, suite.Modern); err != nil {
			fmt.Fprintf(errOut, "export modern key: %v\n", err)
			return 1
		}
	}

	legacyVerifier, err := keys.ParseVerifier(legacyPub)
	if err != nil {
		fmt.Fprintf(errOut, "invalid legacy key: %v\n", err)
		return 2
	}
	modernVerifier, err := keys.ParseVerifier(modernPub)
	if err != nil {
		fmt.Fprintf(errOut, "invalid modern key: %v\n", err)
		return 2
	}
	verifier, err := npk.NewVerifier(legacyVerifier, modernVerifier)
	if err != nil {
		fmt.Fprintf(errOut, "verifier: %v\n", err)
		return 1
	}

	pkg, err := npk.LoadFile(inPath)
	if err != nil {
		fmt.Fprintf(errOut, "load --in: %v\n", err)
		return 1
	}
	if err := verifier.Verify(pkg); err != nil {
		logger.Warn("verification failed", zap.String("path", inPath), zap.String("rule", npk.RuleID(err)))
		fmt.Fprintf(errOut, "invalid (%s): %v\n", npk.RuleID(err), err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}
