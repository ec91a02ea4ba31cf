// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/blinklabs-io/acctsync"
	"github.com/blinklabs-io/acctsync/account"
)

type GlobalFlags struct {
	Flagset       *flag.FlagSet
	Network       string
	Endpoints     string
	EndpointsFile string
	ProgramID     string
	Debug         bool
}

func NewGlobalFlags() *GlobalFlags {
	f := &GlobalFlags{
		Flagset: flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	f.Flagset.StringVar(
		&f.Network,
		"network",
		"localnet",
		"specifies the named network to connect to",
	)
	f.Flagset.StringVar(
		&f.Endpoints,
		"endpoints",
		"",
		"comma-separated list of RPC URLs. this overrides the network's endpoints",
	)
	f.Flagset.StringVar(
		&f.EndpointsFile,
		"endpoints-file",
		"",
		"path to a JSON file with network, program ID and endpoint overrides",
	)
	f.Flagset.StringVar(
		&f.ProgramID,
		"program-id",
		"",
		"base58 address of the program that owns the accounts",
	)
	f.Flagset.BoolVar(&f.Debug, "debug", false, "enable debug logging")
	return f
}

func (f *GlobalFlags) Parse() {
	if err := f.Flagset.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
}

// Resolve builds the network from the flags. Later sources win: the named
// network, then the endpoints file, then -endpoints and -program-id
func (f *GlobalFlags) Resolve() (acctsync.Network, error) {
	network := acctsync.NetworkByName(f.Network)
	if network.Name == acctsync.NetworkInvalid.Name {
		return network, fmt.Errorf("invalid network specified: %s", f.Network)
	}
	if f.EndpointsFile != "" {
		cfg, err := acctsync.NewEndpointsConfigFromFile(f.EndpointsFile)
		if err != nil {
			return network, fmt.Errorf("failed to load endpoints file: %w", err)
		}
		network = cfg.ApplyTo(network)
		if network.Name == acctsync.NetworkInvalid.Name {
			return network, fmt.Errorf("invalid network in endpoints file: %s", cfg.Network)
		}
	}
	if f.Endpoints != "" {
		var endpoints []acctsync.Endpoint
		for _, url := range strings.Split(f.Endpoints, ",") {
			url = strings.TrimSpace(url)
			if url == "" {
				continue
			}
			endpoints = append(endpoints, acctsync.Endpoint{URL: url})
		}
		network.Endpoints = endpoints
	}
	if f.ProgramID != "" {
		programID, err := account.ParsePubkey(f.ProgramID)
		if err != nil {
			return network, fmt.Errorf("invalid program ID: %w", err)
		}
		network.ProgramID = programID
	}
	return network, nil
}

// NewLogger returns a text logger on stderr and installs it as the default
func (f *GlobalFlags) NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if f.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	)
	slog.SetDefault(logger)
	return logger
}
