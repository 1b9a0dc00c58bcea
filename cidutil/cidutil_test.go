package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/dagscan/dagcbor"
)

func TestCIDv1Blake3_Shape(t *testing.T) {
	id, err := CIDv1Blake3(CodecDagCBOR, []byte("hello"))
	if err != nil {
		t.Fatalf("CIDv1Blake3 failed: %v", err)
	}
	if id.Version() != 1 {
		t.Fatalf("version: got %d want 1", id.Version())
	}
	if id.Type() != CodecDagCBOR {
		t.Fatalf("codec: got 0x%x want 0x%x", id.Type(), CodecDagCBOR)
	}
	dm, err := multihash.Decode(id.Hash())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dm.Code != multihash.BLAKE3 || dm.Length != dagcbor.HashLen {
		t.Fatalf("multihash: got code 0x%x len %d", dm.Code, dm.Length)
	}
}

func TestCIDv1Blake3_Deterministic(t *testing.T) {
	a, err := CIDv1Blake3(CodecRaw, []byte("same"))
	if err != nil {
		t.Fatalf("CIDv1Blake3 failed: %v", err)
	}
	b, err := CIDv1Blake3(CodecRaw, []byte("same"))
	if err != nil {
		t.Fatalf("CIDv1Blake3 failed: %v", err)
	}
	if a != b {
		t.Fatalf("not deterministic: %s vs %s", a, b)
	}
	c, err := CIDv1Blake3(CodecDagCBOR, []byte("same"))
	if err != nil {
		t.Fatalf("CIDv1Blake3 failed: %v", err)
	}
	if a == c {
		t.Fatalf("codec not part of identity")
	}
}

func TestLinkRoundTrip(t *testing.T) {
	id, err := CIDv1Blake3(CodecDagCBOR, []byte("node"))
	if err != nil {
		t.Fatalf("CIDv1Blake3 failed: %v", err)
	}

	l, err := ToLink(id)
	if err != nil {
		t.Fatalf("ToLink failed: %v", err)
	}
	if l.Codec != CodecDagCBOR {
		t.Fatalf("codec: got 0x%x", l.Codec)
	}

	back, err := FromLink(l)
	if err != nil {
		t.Fatalf("FromLink failed: %v", err)
	}
	if back != id {
		t.Fatalf("round trip changed cid: %s vs %s", back, id)
	}
}

func TestToLink_RejectsForeignShapes(t *testing.T) {
	sum, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	sha := cid.NewCidV1(CodecRaw, sum)
	if _, err := ToLink(sha); err == nil {
		t.Fatalf("sha2-256 cid accepted")
	}
}

func TestVerify(t *testing.T) {
	data := []byte("payload")
	id, err := CIDv1Blake3(CodecRaw, data)
	if err != nil {
		t.Fatalf("CIDv1Blake3 failed: %v", err)
	}
	if err := Verify(id, data); err != nil {
		t.Fatalf("Verify rejected matching bytes: %v", err)
	}
	if err := Verify(id, []byte("tampered")); err == nil {
		t.Fatalf("Verify accepted tampered bytes")
	}
}
