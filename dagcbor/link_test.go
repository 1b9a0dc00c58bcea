package dagcbor

import (
	"bytes"
	"errors"
	"testing"
)

// linkBlock builds the canonical tag-42 link encoding: a 37-byte CID
// (identity prefix, v1, dag-cbor codec, blake3-256 multihash) wrapped
// in a byte string.
func linkBlock(digest byte) []byte {
	b := []byte{0xd8, 0x2a, 0x58, 0x25, 0x00, 0x01, 0x71, 0x1e, 0x20}
	for i := 0; i < HashLen; i++ {
		b = append(b, digest)
	}
	return b
}

func scanOne(t *testing.T, data []byte) Link {
	t.Helper()
	links, err := Scan(data)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	return links[0]
}

func TestReadLink_WellFormed(t *testing.T) {
	l := scanOne(t, linkBlock(0xab))
	if l.Codec != 0x71 {
		t.Fatalf("codec: got 0x%x want 0x71", l.Codec)
	}
	for _, b := range l.Hash {
		if b != 0xab {
			t.Fatalf("hash bytes not copied: %v", l.Hash)
		}
	}
}

func TestReadLink_MultibyteCodecVarint(t *testing.T) {
	// codec 0x0129 encoded as {0xa9, 0x02}; CID grows to 38 bytes.
	b := []byte{0xd8, 0x2a, 0x58, 0x26, 0x00, 0x01, 0xa9, 0x02, 0x1e, 0x20}
	b = append(b, bytes.Repeat([]byte{0x11}, HashLen)...)

	l := scanOne(t, b)
	if l.Codec != 0x129 {
		t.Fatalf("codec: got 0x%x want 0x129", l.Codec)
	}
}

func TestReadLink_ValidationGates(t *testing.T) {
	mutate := func(idx int, val byte) []byte {
		b := linkBlock(0xab)
		b[idx] = val
		return b
	}

	cases := []struct {
		name string
		data []byte
		code Code
		b    byte
	}{
		{"wrapper not 1-byte-len byte string", mutate(2, 0x59), CodeUnknownTag, 0x59},
		{"zero length", []byte{0xd8, 0x2a, 0x58, 0x00}, CodeLengthOutOfRange, 0},
		{"cid prefix not identity", mutate(4, 0x07), CodeInvalidCidPrefix, 0x07},
		{"cid shorter than a digest", append([]byte{0xd8, 0x2a, 0x58, 0x05}, 0x00, 0x01, 0x71, 0x1e, 0x20), CodeLengthOutOfRange, 0},
		{"cid version not 1", mutate(5, 0x02), CodeInvalidCidVersion, 0},
		{"hash code not blake3", mutate(7, 0x12), CodeInvalidHashAlgorithm, 0},
		{"declared digest length not 32", mutate(8, 0x21), CodeInvalidHashAlgorithm, 0},
		{"digest one byte short", append([]byte{0xd8, 0x2a, 0x58, 0x24, 0x00, 0x01, 0x71, 0x1e, 0x20}, bytes.Repeat([]byte{0xab}, HashLen-1)...), CodeInvalidHashLength, 0},
		{"digest one byte long", append([]byte{0xd8, 0x2a, 0x58, 0x26, 0x00, 0x01, 0x71, 0x1e, 0x20}, bytes.Repeat([]byte{0xab}, HashLen+1)...), CodeInvalidHashLength, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Scan(tc.data)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !IsCode(err, tc.code) {
				t.Fatalf("got %v want code %s", err, tc.code)
			}
			var e *Error
			if tc.b != 0 {
				if !errors.As(err, &e) || e.Byte != tc.b {
					t.Fatalf("offending byte: got %+v want 0x%02x", err, tc.b)
				}
			}
		})
	}
}

func TestReadLink_UnboundedCodecVarint(t *testing.T) {
	// Ten continuation bytes in the codec position: the accumulated
	// shift passes 64 bits before the varint terminates.
	b := []byte{0xd8, 0x2a, 0x58, 0x2e, 0x00, 0x01}
	b = append(b, bytes.Repeat([]byte{0xff}, 10)...)
	b = append(b, 0x1e, 0x20)
	b = append(b, bytes.Repeat([]byte{0xab}, HashLen)...)

	_, err := Scan(b)
	if !IsCode(err, CodeInvalidVarint) {
		t.Fatalf("got %v want INVALID_VARINT", err)
	}
}

// Gate order: a wrong identity prefix is reported as such even though
// the version check would also fail on the same bytes.
func TestReadLink_PrefixGateBeforeVersionGate(t *testing.T) {
	b := linkBlock(0xab)
	b[4] = 0x55

	_, err := Scan(b)
	if !IsCode(err, CodeInvalidCidPrefix) {
		t.Fatalf("got %v want INVALID_CID_PREFIX", err)
	}
}
