package cidutil

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/dagscan/dagcbor"
)

// Codecs used by this repository's block graphs.
const (
	CodecRaw     = uint64(cid.Raw)
	CodecDagCBOR = uint64(cid.DagCBOR)
)

var (
	ErrNotV1         = errors.New("cidutil: cid is not version 1")
	ErrNotBlake3     = errors.New("cidutil: multihash is not blake3-256")
	ErrBadDigestSize = errors.New("cidutil: digest is not 32 bytes")
)

// CIDv1Blake3 returns a CIDv1 with the given codec and a blake3-256
// multihash over data. This is the only CID shape this repository's
// block stores accept, matching the link format the scanner validates.
func CIDv1Blake3(codec uint64, data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.BLAKE3, dagcbor.HashLen)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(codec, sum), nil
}

// FromLink converts a scanned link into a CID.
func FromLink(l dagcbor.Link) (cid.Cid, error) {
	encoded, err := multihash.Encode(l.Hash[:], multihash.BLAKE3)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(l.Codec, multihash.Multihash(encoded)), nil
}

// ToLink converts a CID into the link form the scanner produces.
// CIDs outside the supported shape (v1, blake3, 32-byte digest) are
// rejected.
func ToLink(id cid.Cid) (dagcbor.Link, error) {
	if !id.Defined() {
		return dagcbor.Link{}, errors.New("cidutil: undefined cid")
	}
	if id.Version() != 1 {
		return dagcbor.Link{}, ErrNotV1
	}
	dm, err := multihash.Decode(id.Hash())
	if err != nil {
		return dagcbor.Link{}, err
	}
	if dm.Code != multihash.BLAKE3 {
		return dagcbor.Link{}, ErrNotBlake3
	}
	if dm.Length != dagcbor.HashLen || len(dm.Digest) != dagcbor.HashLen {
		return dagcbor.Link{}, ErrBadDigestSize
	}

	l := dagcbor.Link{Codec: id.Type()}
	copy(l.Hash[:], dm.Digest)
	return l, nil
}

// Verify recomputes the CID for data with id's codec and compares.
func Verify(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return errors.New("cidutil: undefined cid")
	}
	got, err := CIDv1Blake3(id.Type(), data)
	if err != nil {
		return err
	}
	if got != id {
		return fmt.Errorf("cidutil: cid mismatch: got %s want %s", got, id)
	}
	return nil
}
