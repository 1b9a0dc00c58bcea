// Package dagcbor extracts content-addressed link references from
// dag-cbor encoded blocks without decoding them into values.
//
// The scanner walks the encoded byte stream major-type by major-type,
// skips everything that is not a link, and parses-and-validates
// everything that is. Links are tag-42 wrapped CIDv1 identifiers with
// blake3-256 multihashes; any other hash function or CID version is
// rejected.
package dagcbor

import (
	"bytes"
	"io"
)

// DefaultMaxDepth bounds traversal nesting when no WithMaxDepth option
// is given. Real dag-cbor documents are nowhere near this deep; the
// limit exists so attacker-controlled nesting cannot exhaust the stack.
const DefaultMaxDepth = 1024

type config struct {
	maxDepth int
}

// Option configures a traversal.
type Option func(*config)

// WithMaxDepth sets the maximum nesting depth. Values <= 0 select
// DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		c.maxDepth = n
	}
}

// References reads exactly one encoded data item from r and appends
// every link it references to *out, in traversal (pre-)order.
//
// r must be positioned at the start of the item. Bytes following the
// item are left unread. On failure *out is untouched: links found
// before the failing byte are discarded.
func References(r io.ReadSeeker, out *[]Link, opts ...Option) error {
	cfg := config{maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.maxDepth <= 0 {
		cfg.maxDepth = DefaultMaxDepth
	}

	var links []Link
	if err := walkItem(r, &links, cfg.maxDepth); err != nil {
		return err
	}
	*out = append(*out, links...)
	return nil
}

// Scan is the in-memory convenience form of References.
func Scan(data []byte, opts ...Option) ([]Link, error) {
	var links []Link
	if err := References(bytes.NewReader(data), &links, opts...); err != nil {
		return nil, err
	}
	return links, nil
}

// walkItem consumes one complete data item. Depth is the remaining
// nesting budget; it decrements once per child level.
func walkItem(r io.ReadSeeker, out *[]Link, depth int) error {
	if depth <= 0 {
		return newError(CodeDepthLimit)
	}

	major, err := readUint8(r)
	if err != nil {
		return err
	}
	switch {
	// Major type 0: an unsigned integer.
	case major <= 0x17:
	case major == 0x18:
		return skip(r, 1)
	case major == 0x19:
		return skip(r, 2)
	case major == 0x1a:
		return skip(r, 4)
	case major == 0x1b:
		return skip(r, 8)

	// Major type 1: a negative integer.
	case major >= 0x20 && major <= 0x37:
	case major == 0x38:
		return skip(r, 1)
	case major == 0x39:
		return skip(r, 2)
	case major == 0x3a:
		return skip(r, 4)
	case major == 0x3b:
		return skip(r, 8)

	// Major type 2: a byte string.
	case major >= 0x40 && major <= 0x5b:
		n, err := readLen(r, major-0x40)
		if err != nil {
			return err
		}
		return skip(r, int64(n))

	// Major type 3: a text string.
	case major >= 0x60 && major <= 0x7b:
		n, err := readLen(r, major-0x60)
		if err != nil {
			return err
		}
		return skip(r, int64(n))

	// Major type 4: an array of data items.
	case major >= 0x80 && major <= 0x9b:
		n, err := readLen(r, major-0x80)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := walkItem(r, out, depth-1); err != nil {
				return err
			}
		}

	// Major type 4, indefinite length: items until the break marker.
	case major == 0x9f:
		for {
			b, err := readUint8(r)
			if err != nil {
				return err
			}
			if b == 0xff {
				break
			}
			if err := unread(r); err != nil {
				return err
			}
			if err := walkItem(r, out, depth-1); err != nil {
				return err
			}
		}

	// Major type 5: a map of pairs of data items. Keys and values are
	// traversed identically; a link in key position is still a link.
	case major >= 0xa0 && major <= 0xbb:
		n, err := readLen(r, major-0xa0)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := walkItem(r, out, depth-1); err != nil {
				return err
			}
			if err := walkItem(r, out, depth-1); err != nil {
				return err
			}
		}

	// Major type 5, indefinite length.
	case major == 0xbf:
		for {
			b, err := readUint8(r)
			if err != nil {
				return err
			}
			if b == 0xff {
				break
			}
			if err := unread(r); err != nil {
				return err
			}
			if err := walkItem(r, out, depth-1); err != nil {
				return err
			}
			if err := walkItem(r, out, depth-1); err != nil {
				return err
			}
		}

	// Major type 6: semantic tags. Tag 42 marks a link; every other tag
	// is transparently unwrapped since the tagged value may itself
	// contain links.
	case major == 0xd8:
		tag, err := readUint8(r)
		if err != nil {
			return err
		}
		if tag == 42 {
			l, err := readLink(r)
			if err != nil {
				return err
			}
			*out = append(*out, l)
		} else {
			return walkItem(r, out, depth-1)
		}

	// Major type 7: simple values and floats.
	case major >= 0xf4 && major <= 0xf7:
	case major == 0xf8:
		return skip(r, 1)
	case major == 0xf9:
		return skip(r, 2)
	case major == 0xfa:
		return skip(r, 4)
	case major == 0xfb:
		return skip(r, 8)

	default:
		return newByteError(CodeUnexpectedCode, major)
	}
	return nil
}
