package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"strings"

	"xdao.co/npk/keys"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "npk key: local signing key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  npk key init --name <key> [--seed-hex <64hex>] [--legacy <scheme>] [--modern <scheme>] [--force]")
	fmt.Fprintln(w, "  npk key export --name <key> --scheme <scheme>")
	fmt.Fprintln(w, "  npk key list")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Keys are stored under <key-dir>/<name>/<scheme>.key (0600 seed files).")
	fmt.Fprintln(w, "With --seed-hex, both keys are derived from the root seed and reproducible.")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var e env
	var name, seedHex, legacy, modern string
	var force bool
	e.register(fs)
	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional 32-byte root seed as 64 hex chars")
	fs.StringVar(&legacy, "legacy", "", "Legacy scheme (secp256k1)")
	fs.StringVar(&modern, "modern", "", "Modern scheme (ed25519, dilithium3)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}

	cfg, logger, err := e.load(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()
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

	var root []byte
	if seedHex != "" {
		root, err = keys.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		root = make([]byte, keys.SeedSize)
		if _, err := rand.Read(root); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	ks, err := openKeyStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	if err := ks.InitializeFromRoot(name, root, suite, force); err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	for _, scheme := range []keys.Scheme{suite.Legacy, suite.Modern} {
		pub, err := ks.Export(name, scheme)
		if err != nil {
			fmt.Fprintf(errOut, "export key: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "Created %s key: %s\n", scheme, pub)
		fmt.Fprintf(out, "Stored at: %s\n", ks.SeedPath(name, scheme))
	}
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var e env
	var name, schemeName string
	e.register(fs)
	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&schemeName, "scheme", "", "Scheme to export (secp256k1, ed25519, dilithium3)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	scheme, err := keys.ParseScheme(schemeName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --scheme: %v\n", err)
		return 2
	}

	cfg, logger, err := e.load(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	ks, err := openKeyStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	pub, err := ks.Export(name, scheme)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, pub)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var e env
	e.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, logger, err := e.load(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	ks, err := openKeyStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.List()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, entry := range entries {
		names := make([]string, 0, len(entry.Schemes))
		for _, s := range entry.Schemes {
			names = append(names, string(s))
		}
		fmt.Fprintf(out, "%s\t%s\n", entry.Name, strings.Join(names, ","))
	}
	return 0
}
