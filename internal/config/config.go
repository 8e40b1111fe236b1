// Package config implements the CLI/env/file configuration layering:
// pflag-declared flags; --address, --port, --tls-cert-chain, --tls-key
// and --config-file can also be set from an SN_CFG_SERVER_* (or
// SN_P4_SERVER_*) environment variable when the flag is not given;
// --auth-token and --no-config-file have no environment variable. A
// JSON config file provides the lowest-priority defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// TLSConfig is the server's TLS material.
type TLSConfig struct {
	CertChainFile string `json:"cert_chain"`
	KeyFile       string `json:"key"`
}

// AuthConfig is the set of accepted bearer tokens.
type AuthConfig struct {
	Tokens []string `json:"tokens"`
}

// ServerConfig is the server configuration, matching the JSON config file shape:
// {"server": {"tls": {...}, "auth": {"tokens": [...]}}}.
type ServerConfig struct {
	Address       string
	Port          int
	TLS           TLSConfig
	Auth          AuthConfig
	BusIDs        []string
	ConfigFile    string
	NoConfigFile  bool
}

type fileConfig struct {
	Server struct {
		TLS  TLSConfig  `json:"tls"`
		Auth AuthConfig `json:"auth"`
	} `json:"server"`
}

// envKey builds the environment variable name for one flag in the
// prefix's family (SN_CFG_SERVER_* or SN_P4_SERVER_*).
func envKey(prefix, flagName string) string {
	return prefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// Parse builds a ServerConfig from CLI args, falling back to
// environment variables, then a JSON config file, in that priority
// order (flags beat env beat file).
func Parse(prefix string, args []string, defaultConfigFile string) (*ServerConfig, error) {
	fs := pflag.NewFlagSet(prefix, pflag.ContinueOnError)

	address := fs.String("address", "0.0.0.0", "bind address")
	port := fs.Int("port", 0, "bind port")
	certChain := fs.String("tls-cert-chain", "", "server certificate chain file")
	keyFile := fs.String("tls-key", "", "server key file")
	var tokens []string
	fs.StringArrayVar(&tokens, "auth-token", nil, "accepted bearer token (repeatable)")
	configFile := fs.String("config-file", defaultConfigFile, "JSON config file path")
	noConfigFile := fs.Bool("no-config-file", false, "skip reading the config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	applyEnvString(fs, prefix, "address", address)
	applyEnvInt(fs, prefix, "port", port)
	applyEnvString(fs, prefix, "tls-cert-chain", certChain)
	applyEnvString(fs, prefix, "tls-key", keyFile)
	applyEnvString(fs, prefix, "config-file", configFile)

	cfg := &ServerConfig{
		Address:      *address,
		Port:         *port,
		TLS:          TLSConfig{CertChainFile: *certChain, KeyFile: *keyFile},
		Auth:         AuthConfig{Tokens: tokens},
		BusIDs:       fs.Args(),
		ConfigFile:   *configFile,
		NoConfigFile: *noConfigFile,
	}

	if !cfg.NoConfigFile && cfg.ConfigFile != "" {
		if err := cfg.mergeFile(fs); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// mergeFile layers the JSON config file's values under anything the
// flags/env already set explicitly.
func (c *ServerConfig) mergeFile(fs *pflag.FlagSet) error {
	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", c.ConfigFile, err)
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", c.ConfigFile, err)
	}
	if c.TLS.CertChainFile == "" {
		c.TLS.CertChainFile = fc.Server.TLS.CertChainFile
	}
	if c.TLS.KeyFile == "" {
		c.TLS.KeyFile = fc.Server.TLS.KeyFile
	}
	if len(c.Auth.Tokens) == 0 {
		c.Auth.Tokens = fc.Server.Auth.Tokens
	}
	return nil
}

func applyEnvString(fs *pflag.FlagSet, prefix, flagName string, v *string) {
	f := fs.Lookup(flagName)
	if f != nil && f.Changed {
		return
	}
	if val, ok := os.LookupEnv(envKey(prefix, flagName)); ok {
		*v = val
	}
}

func applyEnvInt(fs *pflag.FlagSet, prefix, flagName string, v *int) {
	f := fs.Lookup(flagName)
	if f != nil && f.Changed {
		return
	}
	if val, ok := os.LookupEnv(envKey(prefix, flagName)); ok {
		if n, err := strconv.Atoi(val); err == nil {
			*v = n
		}
	}
}
