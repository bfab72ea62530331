package gateway

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/sirupsen/logrus"

	"github.com/dcos/journal-gatewayd/internal/config"
)

// StartServer brings up the gateway's HTTP(S) listener and blocks serving
// requests until the listener fails (spec.md §6.1, §6.3). It mirrors the
// teacher's api.StartServer: prefer a socket-activation handoff, fall back
// to binding cfg.Port, and load TLS material from cfg once up front since
// spec.md's design notes call TLS material "immutable startup
// configuration".
func StartServer(cfg *config.Config) error {
	gw := &Gateway{DocRoot: cfg.DocRoot}
	handler := Mux(gw)

	listener, err := newListener(cfg)
	if err != nil {
		return fmt.Errorf("creating listener: %w", err)
	}

	server := &http.Server{Handler: handler}

	if cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("loading TLS material: %w", err)
		}
		listener = tls.NewListener(listener, &tls.Config{Certificates: []tls.Certificate{cert}})
	}

	logrus.Infof("journal-gatewayd listening on %s", listener.Addr().String())

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logrus.Debugf("sd_notify failed: %v", err)
	} else if !ok {
		logrus.Debug("sd_notify not supported in this environment (not run under systemd)")
	}

	return server.Serve(listener)
}

// newListener prefers an activation socket handed in by a supervising
// process over binding cfg.Port itself (spec.md §6.1).
func newListener(cfg *config.Config) (net.Listener, error) {
	listeners, err := activation.Listeners()
	if err != nil {
		return nil, fmt.Errorf("checking for activation listeners: %w", err)
	}

	if len(listeners) == 1 {
		return listeners[0], nil
	}
	if len(listeners) > 1 {
		return nil, fmt.Errorf("expected at most one activation socket, got %d", len(listeners))
	}

	addr := net.JoinHostPort(cfg.ListenAddress, fmt.Sprintf("%d", cfg.Port))
	return net.Listen("tcp", addr)
}
