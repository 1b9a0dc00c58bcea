package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable block store interface.
//
// Contract:
// - Put MUST be idempotent.
// - Stored blocks MUST be immutable.
// - CIDs MUST be CIDv1 with a blake3-256 multihash derived from the
//   bytes written, with the caller-supplied codec (see cidutil).
// - Get MUST return ErrNotFound when the CID is absent.
// - Get MUST verify the returned bytes against the requested CID.
type CAS interface {
	Put(codec uint64, bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
