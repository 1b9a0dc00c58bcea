package model

// LinkRef is one outgoing edge of a block.
type LinkRef struct {
	CID   string `json:"cid"`
	Codec uint64 `json:"codec"`
}

// BlockReport describes one visited block.
type BlockReport struct {
	CID   string    `json:"cid"`
	Codec uint64    `json:"codec"`
	Size  int       `json:"size"`
	Links []LinkRef `json:"links,omitempty"`
}

// WalkReport is the JSON boundary for graph traversals.
//
// Blocks appear in visit order. Missing lists referenced blocks the
// store could not provide, in discovery order.
type WalkReport struct {
	Root    string        `json:"root"`
	Blocks  []BlockReport `json:"blocks"`
	Missing []string      `json:"missing,omitempty"`
}
