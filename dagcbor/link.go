package dagcbor

import "io"

// HashLen is the digest length of the one supported hash function.
const HashLen = 32

// Multihash constants for the one supported digest: blake3 with a
// 32-byte output.
const (
	mhBlake3    = 0x1e
	mhBlake3Len = 0x20
)

// Link is one outgoing reference extracted from a block: the content
// codec of the target plus its blake3-256 digest.
type Link struct {
	Codec uint64
	Hash  [HashLen]byte
}

// readLink consumes the fixed CID sub-grammar that follows a tag-42
// header and returns the validated link.
//
// The embedded CID is: identity multibase prefix (0x00), CID version
// (0x01), a varint codec id, the multihash header {0x1e, 0x20}, and
// exactly 32 digest bytes. Any gate failure aborts the whole traversal;
// there is no soft-fail mode.
func readLink(r io.Reader) (Link, error) {
	// The CID is wrapped in a byte string with a 1-byte length (0x58);
	// dag-cbor links are never long enough to need a wider length field.
	ty, err := readUint8(r)
	if err != nil {
		return Link{}, err
	}
	if ty != 0x58 {
		return Link{}, newByteError(CodeUnknownTag, ty)
	}
	n, err := readUint8(r)
	if err != nil {
		return Link{}, err
	}
	if n == 0 {
		return Link{}, newError(CodeLengthOutOfRange)
	}
	buf, err := readBytes(r, int(n))
	if err != nil {
		return Link{}, err
	}
	if buf[0] != 0 {
		return Link{}, newByteError(CodeInvalidCidPrefix, buf[0])
	}
	if len(buf) < HashLen {
		return Link{}, newError(CodeLengthOutOfRange)
	}
	// The identity prefix and the version byte together must be {0, 1}:
	// only CIDv1 is in scope.
	if buf[0] != 0 || buf[1] != 1 {
		return Link{}, newError(CodeInvalidCidVersion)
	}
	codec, rest, err := parseUvarint(buf[2:])
	if err != nil {
		return Link{}, err
	}
	if len(rest) < 2 {
		return Link{}, newError(CodeLengthOutOfRange)
	}
	if rest[0] != mhBlake3 || rest[1] != mhBlake3Len {
		return Link{}, newError(CodeInvalidHashAlgorithm)
	}
	rest = rest[2:]
	if len(rest) != HashLen {
		return Link{}, newError(CodeInvalidHashLength)
	}

	l := Link{Codec: codec}
	copy(l.Hash[:], rest)
	return l, nil
}
