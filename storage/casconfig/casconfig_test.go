package casconfig

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"xdao.co/dagscan/cidutil"
	"xdao.co/dagscan/storage"
	"xdao.co/dagscan/storage/casregistry"
	"xdao.co/dagscan/storage/memory"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:          "testmem",
		Description:   "in-memory store for tests",
		Usage:         casregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {},
		Open: func() (storage.CAS, func() error, error) {
			return memory.New(), nil, nil
		},
		OpenWith: func(config map[string]string) (storage.CAS, func() error, error) {
			return memory.New(), nil, nil
		},
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"empty", Config{}, false},
		{"one backend", Config{Backends: []BackendConfig{{Name: "testmem"}}}, true},
		{"missing name", Config{Backends: []BackendConfig{{}}}, false},
		{"duplicate id", Config{Backends: []BackendConfig{{Name: "testmem"}, {Name: "testmem"}}}, false},
		{"distinct ids", Config{Backends: []BackendConfig{{Name: "testmem", ID: "a"}, {Name: "testmem", ID: "b"}}}, true},
		{"bad policy", Config{WritePolicy: "quorum", Backends: []BackendConfig{{Name: "testmem"}}}, false},
		{"policy all", Config{WritePolicy: "all", Backends: []BackendConfig{{Name: "testmem"}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("Validate accepted invalid config")
			}
		})
	}
}

func TestLoadFileAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cas.json")
	body := `{"write_policy":"all","backends":[
		{"name":"testmem","id":"a"},
		{"name":"testmem","id":"b"}
	]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	cas, closeFn, err := cfg.Open(casregistry.UsageCLI, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	if _, ok := cas.(storage.ReplicatingCAS); !ok {
		t.Fatalf("write_policy=all should yield a ReplicatingCAS, got %T", cas)
	}

	id, err := cas.Put(cidutil.CodecRaw, []byte("configured"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !cas.Has(id) {
		t.Fatalf("block missing after Put")
	}
}

func TestOpenPreferredBackend(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{
		{Name: "testmem", ID: "a"},
		{Name: "testmem", ID: "b"},
	}}

	if _, _, err := cfg.Open(casregistry.UsageCLI, "nope"); err == nil {
		t.Fatalf("unknown preferred backend should fail")
	}

	cas, closeFn, err := cfg.Open(casregistry.UsageCLI, "b")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	if _, ok := cas.(storage.MultiCAS); !ok {
		t.Fatalf("default write policy should yield a MultiCAS, got %T", cas)
	}
}
