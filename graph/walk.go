// Package graph walks block graphs stored in a CAS, discovering edges
// with the dagcbor link scanner.
//
// Traversal is deterministic: links are followed in the pre-order the
// scanner yields them per block, blocks breadth-first across the graph.
// No map iteration influences ordering.
package graph

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/dagcbor"
	"xdao.co/dagscan/storage"
)

// ErrBlockLimit is returned when a walk exceeds Options.MaxBlocks.
var ErrBlockLimit = errors.New("graph: block limit exceeded")

// VisitFunc is called once per reachable block, in visit order.
// Returning an error aborts the walk.
type VisitFunc func(id cid.Cid, block []byte, links []dagcbor.Link) error

// Options controls a walk.
type Options struct {
	// MaxBlocks caps the number of blocks visited; 0 means no cap.
	MaxBlocks int
	// SkipMissing records absent blocks in Result.Missing instead of
	// failing the walk.
	SkipMissing bool
	// ScanDepth bounds nesting inside each block; <= 0 selects
	// dagcbor.DefaultMaxDepth.
	ScanDepth int
}

// Result reports what a walk saw.
type Result struct {
	// Visited lists the blocks that were fetched and scanned, in visit order.
	Visited []cid.Cid
	// Missing lists referenced blocks absent from the CAS (SkipMissing only).
	Missing []cid.Cid
}

// Walk traverses the graph rooted at root. Only dag-cbor blocks are
// scanned for outgoing links; blocks of any other codec are leaves.
// Each reachable block is visited exactly once even when referenced
// from multiple parents.
func Walk(cas storage.CAS, root cid.Cid, visit VisitFunc, opts Options) (*Result, error) {
	if cas == nil {
		return nil, errors.New("graph: nil CAS")
	}
	if !root.Defined() {
		return nil, storage.ErrInvalidCID
	}

	res := &Result{}
	seen := map[cid.Cid]struct{}{root: {}}
	missing := map[cid.Cid]struct{}{}
	queue := []cid.Cid{root}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		block, err := cas.Get(id)
		if err != nil {
			if storage.IsNotFound(err) && opts.SkipMissing {
				if _, dup := missing[id]; !dup {
					missing[id] = struct{}{}
					res.Missing = append(res.Missing, id)
				}
				continue
			}
			return res, fmt.Errorf("graph: get %s: %w", id, err)
		}

		var links []dagcbor.Link
		if id.Type() == cidutil.CodecDagCBOR {
			links, err = dagcbor.Scan(block, dagcbor.WithMaxDepth(opts.ScanDepth))
			if err != nil {
				return res, fmt.Errorf("graph: scan %s: %w", id, err)
			}
		}

		res.Visited = append(res.Visited, id)
		if opts.MaxBlocks > 0 && len(res.Visited) > opts.MaxBlocks {
			return res, ErrBlockLimit
		}

		if visit != nil {
			if err := visit(id, block, links); err != nil {
				return res, err
			}
		}

		for _, l := range links {
			child, err := cidutil.FromLink(l)
			if err != nil {
				return res, fmt.Errorf("graph: bad link in %s: %w", id, err)
			}
			if _, dup := seen[child]; dup {
				continue
			}
			seen[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return res, nil
}

// Closure returns every block reachable from root, in visit order.
// All referenced blocks must be present.
func Closure(cas storage.CAS, root cid.Cid) ([]cid.Cid, error) {
	res, err := Walk(cas, root, nil, Options{})
	if err != nil {
		return nil, err
	}
	return res.Visited, nil
}

// Missing returns referenced-but-absent blocks under root, in discovery
// order. A missing root is reported like any other missing block.
func Missing(cas storage.CAS, root cid.Cid) ([]cid.Cid, error) {
	res, err := Walk(cas, root, nil, Options{SkipMissing: true})
	if err != nil {
		return nil, err
	}
	return res.Missing, nil
}
