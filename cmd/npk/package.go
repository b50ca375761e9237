package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"xdao.co/npk/npk"
)

func loadPackageArg(name string, args []string, errOut io.Writer) (*npk.Package, int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return nil, 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(errOut, "usage: npk %s <file>\n", name)
		return nil, 2
	}
	pkg, err := npk.LoadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "load package: %v\n", err)
		return nil, 1
	}
	return pkg, 0
}

func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	pkg, code := loadPackageArg("inspect", args, errOut)
	if pkg == nil {
		return code
	}
	id, err := pkg.CID()
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tNAME\tLENGTH")
	for i, p := range pkg.Parts() {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\n", i, uint32(p.ID()), p.ID(), p.Len())
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	fmt.Fprintf(out, "size:   %d\n", pkg.Size())
	fmt.Fprintf(out, "digest: %s\n", pkg.Digest())
	fmt.Fprintf(out, "cid:    %s\n", id)
	_, legacy := pkg.Part(npk.PartLegacySignature)
	_, modern := pkg.Part(npk.PartModernSignature)
	fmt.Fprintf(out, "signed: %t\n", legacy && modern)
	if err := pkg.Validate(); err != nil {
		fmt.Fprintf(out, "warning: %v\n", err)
	}
	return 0
}

func cmdDigest(args []string, out io.Writer, errOut io.Writer) int {
	pkg, code := loadPackageArg("digest", args, errOut)
	if pkg == nil {
		return code
	}
	_, _ = fmt.Fprintln(out, pkg.Digest())
	return 0
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	pkg, code := loadPackageArg("cid", args, errOut)
	if pkg == nil {
		return code
	}
	id, err := pkg.CID()
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id)
	return 0
}

func cmdSetPart(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("set-part", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var (
		inPath   string
		outPath  string
		idStr    string
		filePath string
		text     string
		hasText  bool
	)
	fs.StringVar(&inPath, "in", "", "Input package (omit to start an empty package)")
	fs.StringVar(&outPath, "out", "", "Output package (default: --in)")
	fs.StringVar(&idStr, "id", "", "Part id (number, or header/content)")
	fs.StringVar(&filePath, "file", "", "Read the payload from a file")
	fs.Func("text", "Use a literal payload", func(s string) error {
		text, hasText = s, true
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if idStr == "" {
		fmt.Fprintln(errOut, "missing --id")
		return 2
	}
	id, err := parsePartID(idStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --id: %v\n", err)
		return 2
	}
	if (filePath == "") == !hasText {
		fmt.Fprintln(errOut, "exactly one of --file or --text is required")
		return 2
	}
	if outPath == "" {
		outPath = inPath
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}

	payload := []byte(text)
	if filePath != "" {
		payload, err = os.ReadFile(filePath)
		if err != nil {
			fmt.Fprintf(errOut, "read --file: %v\n", err)
			return 1
		}
	}

	pkg := &npk.Package{}
	if inPath != "" {
		pkg, err = npk.LoadFile(inPath)
		if err != nil {
			fmt.Fprintf(errOut, "load --in: %v\n", err)
			return 1
		}
	}

	pkg.ReplacePart(id, payload)
	if err := pkg.SaveFile(outPath); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s: %d part(s), %d bytes\n", outPath, pkg.Len(), pkg.Size())
	return 0
}

func parsePartID(s string) (npk.PartID, error) {
	for _, id := range []npk.PartID{npk.PartHeader, npk.PartContent, npk.PartLegacySignature, npk.PartModernSignature} {
		if s == id.String() {
			return id, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return npk.PartID(n), nil
}
