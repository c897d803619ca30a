// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aspace-tools/aspace-go/sdk/go/archivesspace"
	"github.com/sirupsen/logrus"
)

// DefaultConfigFile is read when no -config flag or ASPACE_CONFIG
// environment variable is given.
const DefaultConfigFile = "/etc/archivesspace/config.yml"

// DefaultProfile is used when a config has more than one profile and
// none is requested.
const DefaultProfile = "default"

// Config lists the ArchivesSpace backends a user can talk to, keyed
// by profile name.
type Config struct {
	Clients map[string]ClientConfig
}

// ClientConfig describes one backend and the credentials to use with
// it.
type ClientConfig struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
	Insecure bool
	Timeout  Duration
	Retries  int

	LogLevel  string
	LogFormat string
}

// defaultClientConfig fills in any zero-valued fields of a loaded
// ClientConfig.
var defaultClientConfig = ClientConfig{
	Scheme:    "https",
	Timeout:   Duration(5 * time.Minute),
	LogLevel:  "info",
	LogFormat: "text",
}

// GetClient returns the named profile. If profile is empty, it
// returns the only profile, or the one named "default".
func (cfg *Config) GetClient(profile string) (*ClientConfig, error) {
	if profile != "" {
		cc, ok := cfg.Clients[profile]
		if !ok {
			return nil, fmt.Errorf("profile %q is not configured", profile)
		}
		return &cc, nil
	}
	if len(cfg.Clients) == 1 {
		for _, cc := range cfg.Clients {
			return &cc, nil
		}
	}
	if cc, ok := cfg.Clients[DefaultProfile]; ok {
		return &cc, nil
	}
	return nil, fmt.Errorf("config has multiple profiles (%s) and none is named %q: specify one with -profile", strings.Join(cfg.profiles(), ", "), DefaultProfile)
}

func (cfg *Config) profiles() []string {
	var names []string
	for name := range cfg.Clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check returns an error describing the first invalid entry in cc.
func (cc *ClientConfig) Check() error {
	if cc.Host == "" {
		return fmt.Errorf("Host is empty")
	}
	if cc.Scheme != "http" && cc.Scheme != "https" {
		return fmt.Errorf("Scheme %q is not supported (use http or https)", cc.Scheme)
	}
	if cc.Port < 0 || cc.Port > 65535 {
		return fmt.Errorf("Port %d is out of range", cc.Port)
	}
	if cc.Retries < 0 {
		return fmt.Errorf("Retries %d is negative", cc.Retries)
	}
	if cc.Timeout < 0 {
		return fmt.Errorf("Timeout %s is negative", cc.Timeout)
	}
	if _, err := logrus.ParseLevel(cc.LogLevel); err != nil {
		return fmt.Errorf("LogLevel: %w", err)
	}
	if cc.LogFormat != "text" && cc.LogFormat != "json" {
		return fmt.Errorf("LogFormat %q is not supported (use text or json)", cc.LogFormat)
	}
	return nil
}

// NewClient returns an archivesspace.Client for the configured
// backend. The client is not connected.
func (cc *ClientConfig) NewClient() *archivesspace.Client {
	client := archivesspace.NewClient(cc.Scheme, cc.Host, cc.Port, cc.Username, cc.Password)
	client.Insecure = cc.Insecure
	client.Timeout = time.Duration(cc.Timeout)
	client.Retries = cc.Retries
	return client
}

// NewClientFromConfig loads the config file at path (see
// Loader.Path) and returns a client for the given profile.
func NewClientFromConfig(path, profile string, logger logrus.FieldLogger) (*archivesspace.Client, error) {
	ldr := NewLoader(nil, logger)
	ldr.Path = path
	cfg, err := ldr.Load()
	if err != nil {
		return nil, err
	}
	cc, err := cfg.GetClient(profile)
	if err != nil {
		return nil, err
	}
	return cc.NewClient(), nil
}

// Duration is time.Duration but looks like "12s" in JSON and YAML,
// rather than a number of nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		dur, err := time.ParseDuration(s)
		*d = Duration(dur)
		return err
	}
	return fmt.Errorf("duration must be given as a string like \"600s\" or \"1h30m\"")
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}
