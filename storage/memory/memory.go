// Package memory provides an in-memory CAS for tests and ephemeral use.
package memory

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/storage"
)

// CAS is an in-memory content-addressable block store.
//
// Safe for concurrent use. Blocks are copied on the way in and out so
// callers cannot mutate stored bytes.
type CAS struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
}

var _ storage.CAS = (*CAS)(nil)

func New() *CAS {
	return &CAS{blocks: make(map[cid.Cid][]byte)}
}

func (c *CAS) Put(codec uint64, bytes []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1Blake3(codec, bytes)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}

	cp := make([]byte, len(bytes))
	copy(cp, bytes)

	c.mu.Lock()
	c.blocks[id] = cp
	c.mu.Unlock()
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	c.mu.RLock()
	b, ok := c.blocks[id]
	c.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	c.mu.RLock()
	_, ok := c.blocks[id]
	c.mu.RUnlock()
	return ok
}

// Len reports the number of stored blocks.
func (c *CAS) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}
