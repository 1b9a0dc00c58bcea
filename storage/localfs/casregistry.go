package localfs

import (
	"flag"
	"fmt"

	"xdao.co/dagscan/storage"
	"xdao.co/dagscan/storage/casregistry"
)

var flagLocalDir string

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem block store (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "LocalFS block store directory (for --backend=localfs)")
		},
		Open: func() (storage.CAS, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			cas, err := New(flagLocalDir)
			return cas, nil, err
		},
		OpenWith: func(config map[string]string) (storage.CAS, func() error, error) {
			dir := config["localfs-dir"]
			if dir == "" {
				return nil, nil, fmt.Errorf("localfs: missing localfs-dir config key")
			}
			cas, err := New(dir)
			return cas, nil, err
		},
	})
}
