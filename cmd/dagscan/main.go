package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/graph"
	"xdao.co/dagscan/keys"
	"xdao.co/dagscan/model"
	"xdao.co/dagscan/storage"
	"xdao.co/dagscan/storage/bundle"
	"xdao.co/dagscan/storage/casconfig"
	"xdao.co/dagscan/storage/casregistry"
	"xdao.co/dagscan/storage/localfs"

	_ "xdao.co/dagscan/storage/grpccas"
	_ "xdao.co/dagscan/storage/ipfs"
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
	case "links":
		return cmdLinks(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "walk":
		return cmdWalk(args[1:], out, errOut)
	case "missing":
		return cmdMissing(args[1:], out, errOut)
	case "replicate":
		return cmdReplicate(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
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
	fmt.Fprintln(w, "dagscan: dag-cbor link scanner and block-graph tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dagscan links [--json] [--max-depth <n>] <file>")
	fmt.Fprintln(w, "  dagscan cid [--codec raw|dag-cbor] <file>")
	fmt.Fprintln(w, "  dagscan put [store flags] [--codec raw|dag-cbor] <file>")
	fmt.Fprintln(w, "  dagscan get [store flags] <cid>")
	fmt.Fprintln(w, "  dagscan walk [store flags] [--max-blocks <n>] [--skip-missing] [--max-depth <n>] <cid>")
	fmt.Fprintln(w, "  dagscan missing [store flags] <cid>")
	fmt.Fprintln(w, "  dagscan replicate [store flags] (--to-store <dir> | --to-cas-config <file>) <cid>")
	fmt.Fprintln(w, "  dagscan bundle export [store flags] [--out <file>] [--sign-key <seedfile>] <cid>")
	fmt.Fprintln(w, "  dagscan bundle import [store flags] [--verify-pub <64hex>] [--ignore-unknown] <file>")
	fmt.Fprintln(w, "  dagscan key gen --out <seedfile>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Store flags (commands that touch a block store):")
	fmt.Fprintln(w, "  --store <dir>         local filesystem store rooted at <dir>")
	fmt.Fprintln(w, "  --cas-config <file>   JSON store config (multiple backends, write policy)")
	fmt.Fprintln(w, "  --backend <name>      open a registered backend directly")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - all CIDs are v1 with a blake3-256 multihash")
	fmt.Fprintln(w, "  - links reads one dag-cbor item and prints its links in traversal order")
	fmt.Fprintln(w, "  - walk prints a JSON report of every reachable block")
}

// storeFlags holds the store selection flags shared by commands that
// need a CAS.
type storeFlags struct {
	dir     string
	config  string
	backend string
}

func addStoreFlags(fs *flag.FlagSet, sf *storeFlags) {
	fs.StringVar(&sf.dir, "store", "", "Local filesystem store directory")
	fs.StringVar(&sf.config, "cas-config", "", "JSON CAS config file")
	fs.StringVar(&sf.backend, "backend", "", "Registered CAS backend name")
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
}

func (sf storeFlags) open() (storage.CAS, func() error, error) {
	switch {
	case sf.dir != "":
		cas, err := localfs.New(sf.dir)
		if err != nil {
			return nil, nil, err
		}
		return cas, nil, nil
	case sf.config != "":
		cfg, err := casconfig.LoadFile(sf.config)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(casregistry.UsageCLI, sf.backend)
	case sf.backend != "":
		return casregistry.Open(sf.backend, casregistry.UsageCLI)
	default:
		return nil, nil, fmt.Errorf("no store selected: use --store, --cas-config, or --backend")
	}
}

func parseCodec(s string) (uint64, error) {
	switch s {
	case "raw":
		return cidutil.CodecRaw, nil
	case "dag-cbor":
		return cidutil.CodecDagCBOR, nil
	default:
		return 0, fmt.Errorf("unknown codec %q (expected raw or dag-cbor)", s)
	}
}

func cmdLinks(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("links", flag.ContinueOnError)
	fs.SetOutput(errOut)
	asJSON := fs.Bool("json", false, "Emit JSON instead of one CID per line")
	maxDepth := fs.Int("max-depth", 0, "Nesting depth limit (0 = default)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan links [--json] [--max-depth <n>] <file>")
		return 2
	}

	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	refs, err := model.ScanLinks(b, *maxDepth)
	if err != nil {
		fmt.Fprintf(errOut, "scan: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(refs); err != nil {
			fmt.Fprintf(errOut, "encode: %v\n", err)
			return 1
		}
		return 0
	}
	for _, r := range refs {
		_, _ = fmt.Fprintln(out, r.CID)
	}
	return 0
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	codecName := fs.String("codec", "raw", "Block codec: raw or dag-cbor")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan cid [--codec raw|dag-cbor] <file>")
		return 2
	}
	codec, err := parseCodec(*codecName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --codec: %v\n", err)
		return 2
	}

	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	id, err := cidutil.CIDv1Blake3(codec, b)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id)
	return 0
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	addStoreFlags(fs, &sf)
	codecName := fs.String("codec", "raw", "Block codec: raw or dag-cbor")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan put [store flags] [--codec raw|dag-cbor] <file>")
		return 2
	}
	codec, err := parseCodec(*codecName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --codec: %v\n", err)
		return 2
	}

	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}

	cas, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	id, err := cas.Put(codec, b)
	if err != nil {
		fmt.Fprintf(errOut, "put: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id)
	return 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	addStoreFlags(fs, &sf)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan get [store flags] <cid>")
		return 2
	}
	id, err := cid.Decode(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid cid: %v\n", err)
		return 2
	}

	cas, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	b, err := cas.Get(id)
	if err != nil {
		fmt.Fprintf(errOut, "get: %v\n", err)
		return 1
	}
	_, _ = out.Write(b)
	return 0
}

func cmdWalk(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("walk", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	addStoreFlags(fs, &sf)
	maxBlocks := fs.Int("max-blocks", 0, "Abort after visiting this many blocks (0 = no cap)")
	skipMissing := fs.Bool("skip-missing", false, "Report absent blocks instead of failing")
	maxDepth := fs.Int("max-depth", 0, "Per-block nesting depth limit (0 = default)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan walk [store flags] <cid>")
		return 2
	}

	cas, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	report, err := model.WalkGraph(fs.Arg(0), model.WalkOptions{
		CAS:         cas,
		MaxBlocks:   *maxBlocks,
		SkipMissing: *skipMissing,
		ScanDepth:   *maxDepth,
	})
	if err != nil {
		fmt.Fprintf(errOut, "walk: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	return 0
}

func cmdMissing(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("missing", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	addStoreFlags(fs, &sf)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan missing [store flags] <cid>")
		return 2
	}
	root, err := cid.Decode(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid cid: %v\n", err)
		return 2
	}

	cas, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	missing, err := graph.Missing(cas, root)
	if err != nil {
		fmt.Fprintf(errOut, "missing: %v\n", err)
		return 1
	}
	for _, id := range missing {
		_, _ = fmt.Fprintln(out, id)
	}
	return 0
}

func cmdReplicate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("replicate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	addStoreFlags(fs, &sf)
	toStore := fs.String("to-store", "", "Destination local filesystem store directory")
	toConfig := fs.String("to-cas-config", "", "Destination JSON CAS config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan replicate [store flags] (--to-store <dir> | --to-cas-config <file>) <cid>")
		return 2
	}
	if (*toStore == "") == (*toConfig == "") {
		fmt.Fprintln(errOut, "exactly one of --to-store or --to-cas-config is required")
		return 2
	}
	root, err := cid.Decode(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid cid: %v\n", err)
		return 2
	}

	src, closeSrc, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "source store: %v\n", err)
		return 2
	}
	if closeSrc != nil {
		defer closeSrc()
	}

	dstFlags := storeFlags{dir: *toStore, config: *toConfig}
	dst, closeDst, err := dstFlags.open()
	if err != nil {
		fmt.Fprintf(errOut, "destination store: %v\n", err)
		return 2
	}
	if closeDst != nil {
		defer closeDst()
	}

	res, err := graph.Replicate(src, dst, root)
	if err != nil {
		fmt.Fprintf(errOut, "replicate: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "replicated %d blocks\n", len(res.Visited))
	return 0
}

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: dagscan bundle <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: export, import")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}

func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	addStoreFlags(fs, &sf)
	outPath := fs.String("out", "", "Write the bundle to this file instead of stdout")
	signKey := fs.String("sign-key", "", "Seed file; signs the bundle index with ed25519")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan bundle export [store flags] [--out <file>] [--sign-key <seedfile>] <cid>")
		return 2
	}
	root, err := cid.Decode(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid cid: %v\n", err)
		return 2
	}

	opts := bundle.ExportOptions{IncludeIndex: true}
	if *signKey != "" {
		priv, err := keys.LoadEd25519(*signKey)
		if err != nil {
			fmt.Fprintf(errOut, "load key: %v\n", err)
			return 1
		}
		opts.SignKey = priv
	}

	cas, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	var w io.Writer = out
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(errOut, "create %s: %v\n", *outPath, err)
			return 1
		}
		defer f.Close()
		w = f
	}

	if err := bundle.ExportClosure(w, cas, root, opts); err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf storeFlags
	addStoreFlags(fs, &sf)
	verifyPub := fs.String("verify-pub", "", "Require a valid index signature under this hex ed25519 public key")
	ignoreUnknown := fs.Bool("ignore-unknown", false, "Skip unknown bundle entries instead of failing")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dagscan bundle import [store flags] [--verify-pub <64hex>] <file>")
		return 2
	}

	opts := bundle.ImportOptions{IgnoreUnknown: *ignoreUnknown}
	if *verifyPub != "" {
		pub, err := hex.DecodeString(*verifyPub)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			fmt.Fprintln(errOut, "invalid --verify-pub (expected 64 hex chars)")
			return 2
		}
		opts.VerifyKey = ed25519.PublicKey(pub)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	defer f.Close()

	cas, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "store: %v\n", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	if err := bundle.ImportWithOptions(f, cas, opts); err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 || args[0] != "gen" {
		fmt.Fprintln(errOut, "usage: dagscan key gen --out <seedfile>")
		return 2
	}
	fs := flag.NewFlagSet("key gen", flag.ContinueOnError)
	fs.SetOutput(errOut)
	outPath := fs.String("out", "", "Seed file path")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}

	seed, err := keys.GenerateEd25519Seed()
	if err != nil {
		fmt.Fprintf(errOut, "rand: %v\n", err)
		return 1
	}
	if err := keys.SaveEd25519Seed(*outPath, seed); err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	fmt.Fprintf(out, "Public-Key: %s\n", hex.EncodeToString(pub))
	fmt.Fprintf(out, "Stored at: %s\n", *outPath)
	return 0
}
