// Package bundle exports and imports dag-cbor graphs as deterministic
// TAR archives.
//
// A bundle holds one entry per block under blocks/<cid>, an optional
// index.json manifest listing roots and blocks, and an optional
// index.sig entry carrying an ed25519 signature over the manifest
// bytes. Bundle bytes are deterministic for a given block set: entry
// order is lexicographic and TAR headers are normalized.
package bundle

import (
	"archive/tar"
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/graph"
	"xdao.co/dagscan/keys"
	"xdao.co/dagscan/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Roots is optional metadata naming the graph roots of the bundle.
	Roots []cid.Cid
	// Labels is optional, non-authoritative metadata mapping names to CIDs.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
	// SignKey, when set, adds an index.sig entry holding an ed25519
	// signature over the index.json bytes. Requires IncludeIndex.
	SignKey ed25519.PrivateKey
}

// ExportClosure exports root and every block reachable from it.
func ExportClosure(w io.Writer, cas storage.CAS, root cid.Cid, opts ExportOptions) error {
	ids, err := graph.Closure(cas, root)
	if err != nil {
		return err
	}
	if len(opts.Roots) == 0 {
		opts.Roots = []cid.Cid{root}
	}
	return Export(w, cas, ids, opts)
}

// Export writes a deterministic TAR bundle containing the blocks for the
// given CIDs. All exported bytes are validated against their CIDs.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}
	if opts.SignKey != nil && !opts.IncludeIndex {
		return fmt.Errorf("bundle: signing requires IncludeIndex")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}

	cidStrings := make([]string, 0, len(uniq))
	for s := range uniq {
		cidStrings = append(cidStrings, s)
	}
	sort.Strings(cidStrings)

	tw := tar.NewWriter(w)

	blocks := make([]indexBlock, 0, len(cidStrings))
	for _, s := range cidStrings {
		id := uniq[s]
		b, err := cas.Get(id)
		if err != nil {
			_ = tw.Close()
			return err
		}
		got, err := cidutil.CIDv1Blake3(id.Prefix().Codec, b)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if got != id {
			_ = tw.Close()
			return storage.ErrCIDMismatch
		}

		entryPath := "blocks/" + id.String()
		if err := writeFile(tw, entryPath, b); err != nil {
			_ = tw.Close()
			return err
		}
		blocks = append(blocks, indexBlock{
			CID:   id.String(),
			Codec: id.Prefix().Codec,
			Size:  len(b),
		})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:   FormatVersion,
			Multihash: "blake3",
			Blocks:    blocks,
		}

		for _, root := range opts.Roots {
			if !root.Defined() {
				_ = tw.Close()
				return storage.ErrInvalidCID
			}
			idx.Roots = append(idx.Roots, root.String())
		}
		sort.Strings(idx.Roots)

		if len(opts.Labels) > 0 {
			names := make([]string, 0, len(opts.Labels))
			for k := range opts.Labels {
				names = append(names, k)
			}
			sort.Strings(names)

			labels := make([]indexLabel, 0, len(names))
			for _, k := range names {
				if k == "" {
					_ = tw.Close()
					return fmt.Errorf("bundle: empty label key")
				}
				v := opts.Labels[k]
				if !v.Defined() {
					_ = tw.Close()
					return storage.ErrInvalidCID
				}
				labels = append(labels, indexLabel{Name: k, CID: v.String()})
			}
			idx.Labels = labels
		}

		b, err := marshalCanonicalIndexJSON(idx)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			_ = tw.Close()
			return err
		}

		if opts.SignKey != nil {
			sig := keys.SignEd25519SHA256(b, opts.SignKey)
			if err := writeFile(tw, "index.sig", []byte(sig+"\n")); err != nil {
				_ = tw.Close()
				return err
			}
		}
	}

	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to
	// return an error.
	IgnoreUnknown bool
	// VerifyKey, when set, requires an index.sig entry whose ed25519
	// signature over index.json verifies under this key.
	VerifyKey ed25519.PublicKey
}

// Import reads a bundle from r and imports all blocks into cas.
//
// Default behavior is fail-closed: unknown entries cause an error.
// Use ImportWithOptions to allow ignoring unknown entries or to require
// a verified signature.
func Import(r io.Reader, cas storage.CAS) error {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and imports all blocks into cas.
//
// It validates that each block's bytes match both the filename CID and
// the computed CID, and stores each block under the codec its CID names.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var indexBytes []byte
	sigVerified := false

	for {
		h, err := tr.Next()
		if err == io.EOF {
			if opts.VerifyKey != nil && !sigVerified {
				return fmt.Errorf("bundle: signature required but index.sig missing")
			}
			return nil
		}
		if err != nil {
			return err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		if name == "index.json" {
			indexBytes, err = io.ReadAll(tr)
			if err != nil {
				return err
			}
			continue
		}
		if name == "index.sig" {
			if opts.VerifyKey == nil {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			if indexBytes == nil {
				return fmt.Errorf("bundle: index.sig precedes index.json")
			}
			sig, err := io.ReadAll(tr)
			if err != nil {
				return err
			}
			if err := keys.VerifyEd25519SHA256(indexBytes, strings.TrimSpace(string(sig)), opts.VerifyKey); err != nil {
				return err
			}
			sigVerified = true
			continue
		}
		// Other non-authoritative metadata.
		if strings.HasPrefix(name, "manifests/") {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return fmt.Errorf("bundle: unknown entry: %s", name)
		}

		cidStr := strings.TrimPrefix(name, "blocks/")
		id, derr := cid.Decode(cidStr)
		if derr != nil || !id.Defined() {
			return storage.ErrInvalidCID
		}

		payload, rerr := io.ReadAll(tr)
		if rerr != nil {
			return rerr
		}
		got, herr := cidutil.CIDv1Blake3(id.Prefix().Codec, payload)
		if herr != nil {
			return herr
		}
		if got != id {
			return storage.ErrCIDMismatch
		}

		key := id.String()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("bundle: duplicate block entry: %s", key)
		}
		seen[key] = struct{}{}

		putID, perr := cas.Put(id.Prefix().Codec, payload)
		if perr != nil {
			return perr
		}
		if putID.String() != id.String() {
			return storage.ErrCIDMismatch
		}
	}
}

type indexJSON struct {
	Version   int          `json:"version"`
	Multihash string       `json:"multihash"`
	Roots     []string     `json:"roots,omitempty"`
	Blocks    []indexBlock `json:"blocks"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID   string `json:"cid"`
	Codec uint64 `json:"codec"`
	Size  int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func marshalCanonicalIndexJSON(idx indexJSON) ([]byte, error) {
	// indexJSON is composed only of structs + slices; encoding/json will be deterministic.
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		Uid:      0,
		Gid:      0,
		Uname:    "",
		Gname:    "",
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			return ""
		}
		if part == ".." {
			return ""
		}
		out = append(out, part)
	}
	return strings.Join(out, "/")
}
