package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"xdao.co/npk/config"
	"xdao.co/npk/keys"
	"xdao.co/npk/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "digest":
		return cmdDigest(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "set-part":
		return cmdSetPart(args[1:], out, errOut)
	case "sign":
		return cmdSign(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "store":
		return cmdStore(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "npk: build, sign and verify NPK packages")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  npk inspect <file>")
	fmt.Fprintln(w, "  npk digest <file>")
	fmt.Fprintln(w, "  npk cid <file>")
	fmt.Fprintln(w, "  npk set-part --id <n> (--file <path> | --text <s>) [--in <file>] --out <file>")
	fmt.Fprintln(w, "  npk sign --in <file> [--out <file>] [--name <key>] [--legacy <scheme>] [--modern <scheme>]")
	fmt.Fprintln(w, "  npk verify --in <file> (--legacy-pub <scheme:b64> --modern-pub <scheme:b64> | --name <key>)")
	fmt.Fprintln(w, "  npk key init --name <key> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  npk key export --name <key> --scheme <scheme>")
	fmt.Fprintln(w, "  npk key list")
	fmt.Fprintln(w, "  npk store put [--backend <name> --opt k=v ...] <file>")
	fmt.Fprintln(w, "  npk store get [--backend <name> --opt k=v ...] [--out <file>] <cid>")
	fmt.Fprintln(w, "  npk store export [--backend <name> --opt k=v ...] --out <bundle.tar> <cid>...")
	fmt.Fprintln(w, "  npk store import [--backend <name> --opt k=v ...] <bundle.tar>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  --config <file>   YAML or JSON settings (default $NPK_CONFIG)")
	fmt.Fprintln(w, "  --key-dir <dir>   key store directory (default ~/.npk/keys)")
	fmt.Fprintln(w, "  --log-level, --log-format")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - schemes: legacy secp256k1; modern ed25519 or dilithium3")
	fmt.Fprintln(w, "  - sign creates missing keys on first use and replaces unusable ones (logged)")
	fmt.Fprintln(w, "  - set-part replaces the first part with the id in place, or appends it")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// env holds the settings shared by subcommands that touch keys, storage or
// logs.
type env struct {
	configPath string
	keyDir     string
	logLevel   string
	logFormat  string
}

func (e *env) register(fs *flag.FlagSet) {
	fs.StringVar(&e.configPath, "config", "", "Config file (YAML or JSON)")
	fs.StringVar(&e.keyDir, "key-dir", "", "Key store directory")
	fs.StringVar(&e.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&e.logFormat, "log-format", "", "Log format (console, json, logfmt)")
}

// load reads the config file and applies flag overrides.
func (e *env) load(errOut io.Writer) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if e.keyDir != "" {
		cfg.Keys.Dir = e.keyDir
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	if e.logFormat != "" {
		cfg.Log.Format = e.logFormat
	}
	lc := cfg.Log.Logging()
	lc.Writer = errOut
	logger, err := logging.New(lc)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func openKeyStore(cfg config.Config, logger *zap.Logger) (*keys.KeyStore, error) {
	return keys.OpenKeyStore(cfg.Keys.Dir, logger)
}
