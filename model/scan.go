package model

import (
	"errors"

	"github.com/ipfs/go-cid"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/dagcbor"
	"xdao.co/dagscan/graph"
	"xdao.co/dagscan/storage"
)

// WalkOptions controls WalkGraph.
type WalkOptions struct {
	CAS storage.CAS

	// MaxBlocks caps the traversal; 0 means no cap.
	MaxBlocks int
	// SkipMissing reports absent blocks instead of failing.
	SkipMissing bool
	// ScanDepth bounds nesting inside each block; <= 0 selects the default.
	ScanDepth int
}

// WalkGraph walks the graph rooted at rootStr, hydrating blocks from the
// CAS, and returns the JSON boundary view of the traversal.
func WalkGraph(rootStr string, opts WalkOptions) (*WalkReport, error) {
	if opts.CAS == nil {
		return nil, NewError(ErrMissingCAS, "no CAS configured")
	}
	root, err := cid.Decode(rootStr)
	if err != nil {
		return nil, NewError(ErrInvalidCID, "invalid root cid: "+err.Error())
	}

	report := &WalkReport{Root: root.String()}
	visit := func(id cid.Cid, block []byte, links []dagcbor.Link) error {
		br := BlockReport{
			CID:   id.String(),
			Codec: id.Type(),
			Size:  len(block),
		}
		for _, l := range links {
			child, err := cidutil.FromLink(l)
			if err != nil {
				return err
			}
			br.Links = append(br.Links, LinkRef{CID: child.String(), Codec: l.Codec})
		}
		report.Blocks = append(report.Blocks, br)
		return nil
	}

	res, err := graph.Walk(opts.CAS, root, visit, graph.Options{
		MaxBlocks:   opts.MaxBlocks,
		SkipMissing: opts.SkipMissing,
		ScanDepth:   opts.ScanDepth,
	})
	if err != nil {
		return nil, mapError(err)
	}
	for _, id := range res.Missing {
		report.Missing = append(report.Missing, id.String())
	}
	return report, nil
}

// ScanLinks extracts the links of a single dag-cbor block without
// touching any store.
func ScanLinks(block []byte, maxDepth int) ([]LinkRef, error) {
	links, err := dagcbor.Scan(block, dagcbor.WithMaxDepth(maxDepth))
	if err != nil {
		return nil, mapError(err)
	}
	refs := make([]LinkRef, 0, len(links))
	for _, l := range links {
		id, err := cidutil.FromLink(l)
		if err != nil {
			return nil, NewError(ErrInternal, err.Error())
		}
		refs = append(refs, LinkRef{CID: id.String(), Codec: l.Codec})
	}
	return refs, nil
}

func mapError(err error) error {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}
	if storage.IsNotFound(err) {
		return NewError(ErrNotFound, err.Error())
	}
	var de *dagcbor.Error
	if errors.As(err, &de) {
		if de.Code == dagcbor.CodeDepthLimit {
			return NewError(ErrDepthLimit, err.Error())
		}
		return NewError(ErrParse, err.Error())
	}
	if errors.Is(err, graph.ErrBlockLimit) {
		return NewError(ErrInvalidRequest, err.Error())
	}
	return NewError(ErrInternal, err.Error())
}
