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

package acctsync

import (
	"time"

	"github.com/blinklabs-io/acctsync/account"
)

// Polling profiles
var (
	// PollingLocal suits a local validator with no rate limiting
	PollingLocal = PollingProfile{
		Floor:            250 * time.Millisecond,
		Normal:           1 * time.Second,
		Fast:             400 * time.Millisecond,
		FastHorizonSlots: 20,
		BackoffMin:       500 * time.Millisecond,
		BackoffMax:       5 * time.Second,
		RetryBaseDelay:   100 * time.Millisecond,
	}
	// PollingRemote suits shared, rate-limited public endpoints
	PollingRemote = PollingProfile{
		Floor:            2 * time.Second,
		Normal:           5 * time.Second,
		Fast:             2 * time.Second,
		FastHorizonSlots: 30,
		BackoffMin:       2 * time.Second,
		BackoffMax:       60 * time.Second,
		RetryBaseDelay:   500 * time.Millisecond,
	}

	DefaultFailoverProfile = FailoverProfile{
		RateLimitThreshold: 1,
		GenericThreshold:   3,
		MaxRetries:         3,
	}
)

// Network definitions
var (
	NetworkLocalnet = Network{
		Name: "localnet",
		Endpoints: []Endpoint{
			{URL: "http://127.0.0.1:8899", Label: "local"},
		},
		Polling:  PollingLocal,
		Failover: DefaultFailoverProfile,
	}
	NetworkDevnet = Network{
		Name: "devnet",
		Endpoints: []Endpoint{
			{URL: "https://api.devnet.solana.com", Label: "solana-devnet"},
		},
		Polling:  PollingRemote,
		Failover: DefaultFailoverProfile,
	}
	NetworkMainnet = Network{
		Name: "mainnet",
		Endpoints: []Endpoint{
			{URL: "https://api.mainnet-beta.solana.com", Label: "solana-mainnet"},
		},
		Polling:  PollingRemote,
		Failover: DefaultFailoverProfile,
	}

	NetworkInvalid = Network{
		Name: "invalid",
	} // NetworkInvalid is used as a return value for lookup functions when a network isn't found
)

// List of valid networks for use in lookup functions
var networks = []Network{
	NetworkLocalnet,
	NetworkDevnet,
	NetworkMainnet,
}

// NetworkByName returns a predefined network by name
func NetworkByName(name string) Network {
	for _, network := range networks {
		if network.Name == name {
			return network
		}
	}
	return NetworkInvalid
}

// Endpoint is a candidate RPC endpoint
type Endpoint struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

func (e Endpoint) String() string {
	if e.Label != "" {
		return e.Label
	}
	return e.URL
}

// PollingProfile holds the interval constants used by the poll schedulers
type PollingProfile struct {
	// Floor is the minimum delay between polls of one resource
	Floor time.Duration
	// Normal is the interval when no deadline is near
	Normal time.Duration
	// Fast is the interval when the resource's deadline is within FastHorizonSlots
	Fast             time.Duration
	FastHorizonSlots uint64
	BackoffMin       time.Duration
	BackoffMax       time.Duration
	// RetryBaseDelay is the fallback delay unit. Attempt n waits n*RetryBaseDelay
	RetryBaseDelay time.Duration
}

// FailoverProfile holds the failover thresholds used by the connection manager
type FailoverProfile struct {
	RateLimitThreshold uint
	GenericThreshold   uint
	MaxRetries         uint
}

// Network represents a ledger network profile
type Network struct {
	Name      string
	Endpoints []Endpoint
	ProgramID account.Pubkey
	Polling   PollingProfile
	Failover  FailoverProfile
}

func (n Network) String() string {
	return n.Name
}

// Valid reports whether the network is usable by a connection manager
func (n Network) Valid() bool {
	return n.Name != NetworkInvalid.Name && len(n.Endpoints) > 0
}
