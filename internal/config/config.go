// Package config loads and validates journal-gatewayd's startup
// configuration, the same shape as the teacher's config package: a flag.FlagSet
// populated struct, validated against a literal JSON schema with
// gojsonschema before the server is allowed to start.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

const (
	progName = "journal-gatewayd"

	// DefaultPort is the TCP port the gateway listens on absent an
	// activation socket (spec.md §6.1).
	DefaultPort = 19531
)

var validationSchema = `
	{
	  "title": "journal-gatewayd config validation schema",
	  "type": "object",
	  "properties": {
	    "port": {
	      "type": "integer",
	      "minimum": 1,
	      "maximum": 65535
	    },
	    "listen_address": {
	      "type": "string"
	    },
	    "docroot": {
	      "type": "string"
	    },
	    "key_file": {
	      "type": "string"
	    },
	    "cert_file": {
	      "type": "string"
	    }
	  },
	  "additionalProperties": false
	}`

// Config holds journal-gatewayd's resolved startup configuration.
type Config struct {
	// Port is the TCP port to listen on when no activation socket was
	// handed in by a supervisor.
	Port int `json:"port"`

	// ListenAddress is the interface address to bind Port on.
	ListenAddress string `json:"listen_address"`

	// DocRoot is the directory /browse serves its static asset from.
	DocRoot string `json:"docroot"`

	// KeyFile is the path to a PEM-encoded TLS private key. Empty means
	// plaintext HTTP.
	KeyFile string `json:"key_file"`

	// CertFile is the path to a PEM-encoded TLS certificate. Empty means
	// plaintext HTTP.
	CertFile string `json:"cert_file"`

	// PrintVersion, when true, means the caller should print the version
	// banner and exit without starting a server.
	PrintVersion bool `json:"-"`
}

// Version is the gateway's reported version string (spec.md §6.3
// "--version"), overridable at link time via -ldflags.
var Version = "dev"

func (c *Config) setFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Port, "port", c.Port, "TCP port to listen on absent an activation socket.")
	fs.StringVar(&c.ListenAddress, "listen-address", c.ListenAddress, "Interface address to bind.")
	fs.StringVar(&c.DocRoot, "docroot", c.DocRoot, "Directory /browse serves browse.html from.")
	fs.StringVar(&c.KeyFile, "key", c.KeyFile, "Path to a PEM TLS private key.")
	fs.StringVar(&c.CertFile, "cert", c.CertFile, "Path to a PEM TLS certificate.")
	fs.BoolVar(&c.PrintVersion, "version", c.PrintVersion, "Print version and exit.")
}

// New parses args (os.Args-shaped: args[0] is the program name) into a
// validated Config. No positional arguments are accepted (spec.md §6.3).
func New(args []string) (*Config, error) {
	if len(args) == 0 {
		return nil, errors.New("arguments cannot be empty")
	}

	cfg := &Config{
		Port:          DefaultPort,
		ListenAddress: "",
		DocRoot:       ".",
	}

	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	cfg.setFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected positional arguments: %v", fs.Args())
	}

	if cfg.PrintVersion {
		return cfg, nil
	}

	if (cfg.KeyFile == "") != (cfg.CertFile == "") {
		return nil, errors.New("both --key and --cert must be given, or neither")
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PrintVersionBanner writes the version and feature banner to stdout.
func PrintVersionBanner() {
	fmt.Fprintf(os.Stdout, "%s %s (+TLS +ACTIVATION)\n", progName, Version)
}

func validate(cfg *Config) error {
	schemaLoader := gojsonschema.NewStringLoader(validationSchema)
	schema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid config: %v", msgs)
	}

	return nil
}
