// dagvector_gen writes a small set of dag-cbor conformance blocks into
// a directory, one file per block plus a roots file listing their CIDs.
// The output is deterministic and suitable for checking other
// implementations of the link scanner.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/internal/dagtest"
)

func mustCID(codec uint64, b []byte) cid.Cid {
	id, err := cidutil.CIDv1Blake3(codec, b)
	if err != nil {
		panic(err)
	}
	return id
}

func main() {
	dir := flag.String("out", "testdata/vectors", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Two raw leaves, a node referencing both, and a node referencing
	// that node. Walking vector-root must visit four blocks.
	leafA := []byte("vector leaf a")
	leafB := []byte("vector leaf b")
	leafACID := mustCID(cidutil.CodecRaw, leafA)
	leafBCID := mustCID(cidutil.CodecRaw, leafB)

	mid := dagtest.Node("mid", []cid.Cid{leafACID, leafBCID})
	midCID := mustCID(cidutil.CodecDagCBOR, mid)

	root := dagtest.Node("root", []cid.Cid{midCID})
	rootCID := mustCID(cidutil.CodecDagCBOR, root)

	blocks := []struct {
		id   cid.Cid
		data []byte
	}{
		{leafACID, leafA},
		{leafBCID, leafB},
		{midCID, mid},
		{rootCID, root},
	}
	for _, b := range blocks {
		path := filepath.Join(*dir, b.id.String())
		if err := os.WriteFile(path, b.data, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	roots := rootCID.String() + "\n"
	if err := os.WriteFile(filepath.Join(*dir, "roots.txt"), []byte(roots), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(rootCID)
}
