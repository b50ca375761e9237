package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/npk/cidutil"
	"xdao.co/npk/npk"
	"xdao.co/npk/storage"
	"xdao.co/npk/storage/bundle"
	"xdao.co/npk/storage/registry"

	_ "xdao.co/npk/storage/grpcstore"
	_ "xdao.co/npk/storage/ipfs"
	_ "xdao.co/npk/storage/localfs"
)

func cmdStore(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printStoreUsage(errOut)
		return 2
	}
	switch args[0] {
	case "put":
		return cmdStorePut(args[1:], out, errOut)
	case "get":
		return cmdStoreGet(args[1:], out, errOut)
	case "export":
		return cmdStoreExport(args[1:], out, errOut)
	case "import":
		return cmdStoreImport(args[1:], out, errOut)
	case "backends":
		for _, b := range registry.List(registry.UsageCLI) {
			fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
			for _, opt := range b.Options {
				fmt.Fprintf(out, "  %s\t%s\n", opt.Key, opt.Description)
			}
		}
		return 0
	case "help", "-h", "--help":
		printStoreUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown store subcommand: %s\n\n", args[0])
		printStoreUsage(errOut)
		return 2
	}
}

func printStoreUsage(w io.Writer) {
	fmt.Fprintln(w, "npk store: publish packages to a content-addressed store")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  npk store put [--backend <name> --opt k=v ...] <file>")
	fmt.Fprintln(w, "  npk store get [--backend <name> --opt k=v ...] [--out <file>] <cid>")
	fmt.Fprintln(w, "  npk store export [--backend <name> --opt k=v ...] --out <bundle.tar> <cid>...")
	fmt.Fprintln(w, "  npk store import [--backend <name> --opt k=v ...] <bundle.tar>")
	fmt.Fprintln(w, "  npk store backends")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Without --backend the store section of --config is used.")
}

// storeFlags selects a backend either by flag or from the config file.
type storeFlags struct {
	env
	backend string
	opts    stringList
}

func (s *storeFlags) register(fs *flag.FlagSet) {
	s.env.register(fs)
	fs.StringVar(&s.backend, "backend", "", "Backend name (see 'npk store backends')")
	fs.Var(&s.opts, "opt", "Backend option key=value (repeatable)")
}

func (s *storeFlags) open(errOut io.Writer) (storage.Store, *zap.Logger, error) {
	cfg, logger, err := s.load(errOut)
	if err != nil {
		return nil, nil, err
	}
	if s.backend != "" {
		opts, err := registry.ParseOptions(s.opts)
		if err != nil {
			return nil, nil, err
		}
		st, err := registry.Open(s.backend, registry.UsageCLI, opts, logger)
		return st, logger, err
	}
	if len(s.opts) > 0 {
		return nil, nil, fmt.Errorf("--opt requires --backend")
	}
	if len(cfg.Store.Backends) == 0 {
		return nil, nil, fmt.Errorf("no --backend given and no store configured")
	}
	st, err := cfg.Store.Open(registry.UsageCLI, "", logger)
	return st, logger, err
}

func cmdStorePut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("store put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	sf.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: npk store put [--backend <name> --opt k=v ...] <file>")
		return 2
	}
	pkg, err := npk.LoadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "load package: %v\n", err)
		return 1
	}

	st, logger, err := sf.open(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = storage.Close(st) }()

	id, err := storage.PutPackage(context.Background(), st, pkg)
	if err != nil {
		fmt.Fprintf(errOut, "put: %v\n", err)
		return 1
	}
	logger.Info("stored package", zap.String("cid", id.String()), zap.Int("bytes", pkg.Size()))
	_, _ = fmt.Fprintln(out, id)
	return 0
}

func cmdStoreGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("store get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	var outPath string
	sf.register(fs)
	fs.StringVar(&outPath, "out", "", "Write the package here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: npk store get [--backend <name> --opt k=v ...] [--out <file>] <cid>")
		return 2
	}
	id, err := cidutil.Parse(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid cid: %v\n", err)
		return 2
	}

	st, logger, err := sf.open(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = storage.Close(st) }()

	pkg, err := storage.GetPackage(context.Background(), st, id)
	if err != nil {
		fmt.Fprintf(errOut, "get: %v\n", err)
		return 1
	}
	if outPath != "" {
		if err := pkg.SaveFile(outPath); err != nil {
			fmt.Fprintf(errOut, "write --out: %v\n", err)
			return 1
		}
		return 0
	}
	if _, err := pkg.WriteTo(out); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	return 0
}

func cmdStoreExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("store export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	var outPath string
	var noIndex bool
	sf.register(fs)
	fs.StringVar(&outPath, "out", "", "Bundle file to write")
	fs.BoolVar(&noIndex, "no-index", false, "Omit index.json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if outPath == "" || fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: npk store export [--backend <name> --opt k=v ...] --out <bundle.tar> <cid>...")
		return 2
	}
	ids := make([]cid.Cid, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := cidutil.Parse(arg)
		if err != nil {
			fmt.Fprintf(errOut, "invalid cid %q: %v\n", arg, err)
			return 2
		}
		ids = append(ids, id)
	}

	st, logger, err := sf.open(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = storage.Close(st) }()

	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(errOut, "create --out: %v\n", err)
		return 1
	}
	defer f.Close()
	if err := bundle.Export(context.Background(), f, st, ids, bundle.ExportOptions{IncludeIndex: !noIndex}); err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "exported %d package(s) to %s\n", len(ids), outPath)
	return 0
}

func cmdStoreImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("store import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	var ignoreUnknown bool
	sf.register(fs)
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unknown bundle entries")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: npk store import [--backend <name> --opt k=v ...] <bundle.tar>")
		return 2
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open bundle: %v\n", err)
		return 1
	}
	defer f.Close()

	st, logger, err := sf.open(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = storage.Close(st) }()

	ids, err := bundle.Import(context.Background(), f, st, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
	if err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	for _, id := range ids {
		_, _ = fmt.Fprintln(out, id)
	}
	return 0
}
