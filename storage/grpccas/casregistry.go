package grpccas

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"xdao.co/dagscan/storage"
	"xdao.co/dagscan/storage/casregistry"
)

var (
	flagGRPCTarget  string
	flagGRPCTimeout time.Duration
)

func open(target string, timeout time.Duration) (storage.CAS, func() error, error) {
	if target == "" {
		return nil, nil, fmt.Errorf("missing grpc target")
	}
	c, err := Dial(target, DialOptions{Timeout: timeout})
	if err != nil {
		return nil, nil, err
	}
	c.Timeout = timeout
	return c, c.Close, nil
}

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "Remote block store over gRPC",
		Usage:       casregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagGRPCTarget, "grpc-target", "", "gRPC block store target address (for --backend=grpc)")
			fs.DurationVar(&flagGRPCTimeout, "grpc-timeout", 5*time.Second, "gRPC per-RPC timeout")
		},
		Open: func() (storage.CAS, func() error, error) {
			return open(flagGRPCTarget, flagGRPCTimeout)
		},
		OpenWith: func(config map[string]string) (storage.CAS, func() error, error) {
			timeout := 5 * time.Second
			if s := config["grpc-timeout"]; s != "" {
				d, err := time.ParseDuration(s)
				if err != nil {
					secs, serr := strconv.Atoi(s)
					if serr != nil {
						return nil, nil, fmt.Errorf("grpccas: bad grpc-timeout %q", s)
					}
					d = time.Duration(secs) * time.Second
				}
				timeout = d
			}
			return open(config["grpc-target"], timeout)
		},
	})
}
