// Package dagtest builds small dag-cbor blocks for tests and vector
// generation. It is the only place in the repository that writes the
// format; the public API only reads it.
package dagtest

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/dagcbor"
)

// AppendText appends a definite-length text string item.
func AppendText(b []byte, s string) []byte {
	b = appendHeader(b, 0x60, len(s))
	return append(b, s...)
}

// AppendBytes appends a definite-length byte string item.
func AppendBytes(b []byte, p []byte) []byte {
	b = appendHeader(b, 0x40, len(p))
	return append(b, p...)
}

// AppendUint appends an unsigned integer item.
func AppendUint(b []byte, v uint64) []byte {
	if v > 0xffffffff {
		return append(b, 0x1b,
			byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return appendHeader(b, 0x00, int(v))
}

// AppendArrayHeader appends a definite-length array header for n items.
func AppendArrayHeader(b []byte, n int) []byte {
	return appendHeader(b, 0x80, n)
}

// AppendMapHeader appends a definite-length map header for n pairs.
func AppendMapHeader(b []byte, n int) []byte {
	return appendHeader(b, 0xa0, n)
}

// AppendLink appends a tag-42 link to the given CID.
func AppendLink(b []byte, id cid.Cid) []byte {
	l, err := cidutil.ToLink(id)
	if err != nil {
		panic(fmt.Sprintf("dagtest: unsupported cid %s: %v", id, err))
	}
	return AppendLinkParts(b, l.Codec, l.Hash)
}

// AppendLinkParts appends a tag-42 link built from a codec and digest.
func AppendLinkParts(b []byte, codec uint64, digest [dagcbor.HashLen]byte) []byte {
	payload := []byte{0x00, 0x01}
	payload = append(payload, varint.ToUvarint(codec)...)
	payload = append(payload, 0x1e, 0x20)
	payload = append(payload, digest[:]...)

	b = append(b, 0xd8, 0x2a)
	return AppendBytes(b, payload)
}

// Node builds a dag-cbor map {"name": name, "links": [...]}, the
// block shape the graph tests use.
func Node(name string, children []cid.Cid) []byte {
	b := AppendMapHeader(nil, 2)
	b = AppendText(b, "links")
	b = AppendArrayHeader(b, len(children))
	for _, c := range children {
		b = AppendLink(b, c)
	}
	b = AppendText(b, "name")
	b = AppendText(b, name)
	return b
}

func appendHeader(b []byte, major byte, n int) []byte {
	switch {
	case n < 24:
		return append(b, major+byte(n))
	case n < 0x100:
		return append(b, major+0x18, byte(n))
	case n < 0x10000:
		return append(b, major+0x19, byte(n>>8), byte(n))
	default:
		return append(b, major+0x1a, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}
