package graph

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/dagscan/dagcbor"
	"xdao.co/dagscan/storage"
)

// Replicate copies the closure of root from src to dst.
//
// Blocks are written parent-first in visit order. Every write is
// CID-verified; a destination returning a different CID aborts with
// ErrCIDMismatch.
func Replicate(src, dst storage.CAS, root cid.Cid) (*Result, error) {
	if dst == nil {
		return nil, errors.New("graph: nil destination CAS")
	}
	copyBlock := func(id cid.Cid, block []byte, links []dagcbor.Link) error {
		got, err := dst.Put(id.Type(), block)
		if err != nil {
			return fmt.Errorf("graph: replicate %s: %w", id, err)
		}
		if got != id {
			return storage.ErrCIDMismatch
		}
		return nil
	}
	return Walk(src, root, copyBlock, Options{})
}
