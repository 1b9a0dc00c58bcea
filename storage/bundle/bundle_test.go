package bundle_test

import (
	"archive/tar"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/internal/dagtest"
	"xdao.co/dagscan/storage"
	"xdao.co/dagscan/storage/bundle"
	"xdao.co/dagscan/storage/memory"
)

func TestBundle_ExportIsDeterministic(t *testing.T) {
	cas := memory.New()

	id1, err := cas.Put(cidutil.CodecRaw, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := cas.Put(cidutil.CodecRaw, []byte("world"))
	if err != nil {
		t.Fatal(err)
	}

	var outA bytes.Buffer
	if err := bundle.Export(&outA, cas, []cid.Cid{id2, id1}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}
	var outB bytes.Buffer
	if err := bundle.Export(&outB, cas, []cid.Cid{id1, id2}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(outA.Bytes(), outB.Bytes()) {
		t.Fatalf("expected deterministic bundle bytes")
	}
}

func TestBundle_ClosureRoundTrip(t *testing.T) {
	src := memory.New()

	leaf, err := src.Put(cidutil.CodecRaw, []byte("leaf payload"))
	if err != nil {
		t.Fatal(err)
	}
	root, err := src.Put(cidutil.CodecDagCBOR, dagtest.Node("root", []cid.Cid{leaf}))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := bundle.ExportClosure(&buf, src, root, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}

	dst := memory.New()
	if err := bundle.Import(bytes.NewReader(buf.Bytes()), dst); err != nil {
		t.Fatal(err)
	}

	for _, id := range []cid.Cid{root, leaf} {
		got, err := dst.Get(id)
		if err != nil {
			t.Fatalf("Get %s: %v", id, err)
		}
		if err := cidutil.Verify(id, got); err != nil {
			t.Fatalf("Verify %s: %v", id, err)
		}
	}
}

func TestBundle_ImportPreservesCodec(t *testing.T) {
	src := memory.New()
	id, err := src.Put(cidutil.CodecDagCBOR, dagtest.Node("solo", nil))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := bundle.Export(&buf, src, []cid.Cid{id}, bundle.ExportOptions{}); err != nil {
		t.Fatal(err)
	}

	dst := memory.New()
	if err := bundle.Import(bytes.NewReader(buf.Bytes()), dst); err != nil {
		t.Fatal(err)
	}
	if !dst.Has(id) {
		t.Fatalf("imported block not stored under dag-cbor CID")
	}
}

func TestBundle_ImportRejectsCIDMismatch(t *testing.T) {
	good := []byte("good")
	otherCID, err := cidutil.CIDv1Blake3(cidutil.CodecRaw, []byte("other"))
	if err != nil {
		t.Fatal(err)
	}

	// Name says "otherCID" but bytes are "good" so the computed CID differs.
	bundleBytes := makeDeterministicTar(t, "blocks/"+otherCID.String(), good)

	dst := memory.New()
	if err := bundle.Import(bytes.NewReader(bundleBytes), dst); err != storage.ErrCIDMismatch {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}

func TestBundle_ImportRejectsUnknownEntry(t *testing.T) {
	bundleBytes := makeDeterministicTar(t, "extra/notes.txt", []byte("hi"))

	dst := memory.New()
	if err := bundle.Import(bytes.NewReader(bundleBytes), dst); err == nil {
		t.Fatalf("expected error for unknown entry")
	}
	if err := bundle.ImportWithOptions(bytes.NewReader(bundleBytes), dst, bundle.ImportOptions{IgnoreUnknown: true}); err != nil {
		t.Fatalf("IgnoreUnknown: %v", err)
	}
}

func TestBundle_SignedRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	src := memory.New()
	id, err := src.Put(cidutil.CodecRaw, []byte("signed payload"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	opts := bundle.ExportOptions{IncludeIndex: true, SignKey: priv}
	if err := bundle.Export(&buf, src, []cid.Cid{id}, opts); err != nil {
		t.Fatal(err)
	}

	dst := memory.New()
	if err := bundle.ImportWithOptions(bytes.NewReader(buf.Bytes()), dst, bundle.ImportOptions{VerifyKey: pub}); err != nil {
		t.Fatalf("verified import: %v", err)
	}

	// A different key must reject the signature.
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if err := bundle.ImportWithOptions(bytes.NewReader(buf.Bytes()), memory.New(), bundle.ImportOptions{VerifyKey: otherPub}); err == nil {
		t.Fatalf("expected signature verification failure")
	}

	// Requiring a signature on an unsigned bundle must fail.
	var unsigned bytes.Buffer
	if err := bundle.Export(&unsigned, src, []cid.Cid{id}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}
	if err := bundle.ImportWithOptions(bytes.NewReader(unsigned.Bytes()), memory.New(), bundle.ImportOptions{VerifyKey: pub}); err == nil {
		t.Fatalf("expected missing signature error")
	}
}

func TestBundle_SignRequiresIndex(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	err = bundle.Export(&buf, memory.New(), nil, bundle.ExportOptions{SignKey: priv})
	if err == nil {
		t.Fatalf("expected error when signing without index")
	}
}

func makeDeterministicTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	h := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		Uid:      0,
		Gid:      0,
		Uname:    "",
		Gname:    "",
		ModTime:  time.Unix(0, 0).UTC(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(h); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
