package ipfs

import (
	"flag"
	"os"

	"xdao.co/dagscan/storage"
	"xdao.co/dagscan/storage/casregistry"
)

var (
	flagIPFSBin  string
	flagIPFSPath string
)

func openWith(bin, ipfsPath string) (storage.CAS, func() error, error) {
	opts := Options{Bin: bin}
	if ipfsPath != "" {
		opts.Env = append(os.Environ(), "IPFS_PATH="+ipfsPath)
	}
	return New(opts), nil, nil
}

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Kubo CLI block store (local repo, offline)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagIPFSBin, "ipfs-bin", "", "Path to the ipfs binary (default: ipfs on PATH)")
			fs.StringVar(&flagIPFSPath, "ipfs-path", "", "IPFS repo path (sets IPFS_PATH)")
		},
		Open: func() (storage.CAS, func() error, error) {
			return openWith(flagIPFSBin, flagIPFSPath)
		},
		OpenWith: func(config map[string]string) (storage.CAS, func() error, error) {
			return openWith(config["ipfs-bin"], config["ipfs-path"])
		},
	})
}
