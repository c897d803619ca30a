// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/aspace-tools/aspace-go/sdk/go/archivesspace"
	"github.com/aspace-tools/aspace-go/sdk/go/ctxlog"
	"github.com/ghodss/yaml"
	"github.com/sirupsen/logrus"
)

var errNoConfigFile = errors.New("no config file")

// FlagSet is the part of flag.FlagSet (and getopt.FlagSet) used by
// Loader.SetupFlags.
type FlagSet interface {
	StringVar(p *string, name string, value string, usage string)
}

type Loader struct {
	Stdin  io.Reader
	Logger logrus.FieldLogger

	// Config file to read. "-" means Stdin. Empty means
	// $ASPACE_CONFIG, or DefaultConfigFile; if the latter does
	// not exist, a single "default" profile is built from the
	// ASPACE_API_* environment variables instead.
	Path string

	unknownKeys []string
}

// NewLoader returns a new Loader with Stdin and Logger set to the
// given values, and all config paths set to their default values.
func NewLoader(stdin io.Reader, logger logrus.FieldLogger) *Loader {
	if logger == nil {
		logger = ctxlog.FromContext(context.Background())
	}
	return &Loader{Stdin: stdin, Logger: logger}
}

// SetupFlags configures a flagset so arguments like -config X can be
// used to change the loader's Path.
//
//	ldr := NewLoader(os.Stdin, logger)
//	flagset := flag.NewFlagSet("", flag.ContinueOnError)
//	ldr.SetupFlags(flagset)
//	// ldr.Path == ""
//	flagset.Parse([]string{"-config", "/tmp/c.yaml"})
//	// ldr.Path == "/tmp/c.yaml"
func (ldr *Loader) SetupFlags(flagset FlagSet) {
	flagset.StringVar(&ldr.Path, "config", "", "Client configuration `file` (default $ASPACE_CONFIG or "+DefaultConfigFile+")")
}

// UnknownKeys returns the config entries that were ignored by the
// last call to Load.
func (ldr *Loader) UnknownKeys() []string {
	return append([]string(nil), ldr.unknownKeys...)
}

// Load reads, checks, and fills in defaults for the configuration.
func (ldr *Loader) Load() (*Config, error) {
	ldr.unknownKeys = nil
	buf, err := ldr.read()
	if errors.Is(err, errNoConfigFile) {
		return ldr.loadEnv()
	} else if err != nil {
		return nil, err
	}
	return ldr.load(buf)
}

func (ldr *Loader) read() ([]byte, error) {
	path := ldr.Path
	implicit := false
	if path == "" {
		path = os.Getenv("ASPACE_CONFIG")
	}
	if path == "" {
		path = DefaultConfigFile
		implicit = true
	}
	if path == "-" {
		if ldr.Stdin == nil {
			return nil, errors.New("cannot read config from stdin")
		}
		return io.ReadAll(ldr.Stdin)
	}
	buf, err := os.ReadFile(path)
	if implicit && os.IsNotExist(err) {
		return nil, errNoConfigFile
	}
	return buf, err
}

func (ldr *Loader) load(buf []byte) (*Config, error) {
	var cfg Config
	err := yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return nil, err
	}
	if len(cfg.Clients) == 0 {
		return nil, errors.New("config does not define any clients")
	}
	ldr.logExtraKeys(buf)
	for name, cc := range cfg.Clients {
		err = ldr.applyDefaults(&cc)
		if err != nil {
			return nil, err
		}
		if err := cc.Check(); err != nil {
			return nil, fmt.Errorf("Clients.%s: %w", name, err)
		}
		cfg.Clients[name] = cc
	}
	return &cfg, nil
}

func (ldr *Loader) applyDefaults(cc *ClientConfig) error {
	return mergo.Merge(cc, defaultClientConfig)
}

// loadEnv builds a one-profile config from the ASPACE_API_*
// environment variables and settings file.
func (ldr *Loader) loadEnv() (*Config, error) {
	client := archivesspace.NewClientFromEnv()
	if client.Endpoint.Host == "" {
		return nil, fmt.Errorf("%s does not exist and ASPACE_API_HOST is not set", DefaultConfigFile)
	}
	cc := ClientConfig{
		Scheme:   client.Endpoint.Scheme,
		Host:     client.Endpoint.Host,
		Port:     client.Endpoint.Port,
		Username: client.Credentials.Username,
		Password: client.Credentials.Password,
		Insecure: client.Insecure,
		Timeout:  Duration(client.Timeout),
	}
	if err := ldr.applyDefaults(&cc); err != nil {
		return nil, err
	}
	if err := cc.Check(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	ldr.Logger.Debug("no config file, using ASPACE_API_* environment")
	return &Config{Clients: map[string]ClientConfig{DefaultProfile: cc}}, nil
}

// logExtraKeys warns about config entries that don't correspond to
// any Config field, e.g., misspellings.
func (ldr *Loader) logExtraKeys(buf []byte) {
	var raw map[string]interface{}
	if yaml.Unmarshal(buf, &raw) != nil {
		return
	}
	known := fieldNames(reflect.TypeOf(ClientConfig{}))
	for key, val := range raw {
		if !strings.EqualFold(key, "Clients") {
			ldr.unknownKeys = append(ldr.unknownKeys, key)
			continue
		}
		clients, _ := val.(map[string]interface{})
		for name, entries := range clients {
			entries, _ := entries.(map[string]interface{})
			for k := range entries {
				if !known[strings.ToLower(k)] {
					ldr.unknownKeys = append(ldr.unknownKeys, key+"."+name+"."+k)
				}
			}
		}
	}
	sort.Strings(ldr.unknownKeys)
	for _, k := range ldr.unknownKeys {
		ldr.Logger.Warnf("deprecated or unknown config entry: %s", k)
	}
}

func fieldNames(t reflect.Type) map[string]bool {
	names := map[string]bool{}
	for i := 0; i < t.NumField(); i++ {
		names[strings.ToLower(t.Field(i).Name)] = true
	}
	return names
}
