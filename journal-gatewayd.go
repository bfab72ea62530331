// Command journal-gatewayd exposes a local systemd journal as a read-only
// HTTP API: historical entry queries, live tailing, field enumeration, and
// host metadata. See SPEC_FULL.md for the full component design.
package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dcos/journal-gatewayd/internal/config"
	"github.com/dcos/journal-gatewayd/internal/gateway"
)

func main() {
	cfg, err := config.New(os.Args)
	if err != nil {
		logrus.Fatalf("could not load config: %s", err)
	}

	if cfg.PrintVersion {
		config.PrintVersionBanner()
		return
	}

	logrus.Fatal(gateway.StartServer(cfg))
}
