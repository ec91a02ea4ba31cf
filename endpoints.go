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
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/acctsync/account"
	"github.com/bytedance/sonic"
)

// EndpointsConfig represents an endpoint override file
//
//	{
//	  "network": "devnet",
//	  "programId": "...",
//	  "endpoints": [
//	    {"url": "https://example-rpc.invalid", "label": "primary"}
//	  ]
//	}
type EndpointsConfig struct {
	Network   string          `json:"network"`
	ProgramID *account.Pubkey `json:"programId"`
	Endpoints []Endpoint      `json:"endpoints"`
}

func NewEndpointsConfigFromFile(path string) (*EndpointsConfig, error) {
	dataFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer dataFile.Close()
	return NewEndpointsConfigFromReader(dataFile)
}

func NewEndpointsConfigFromReader(r io.Reader) (*EndpointsConfig, error) {
	e := &EndpointsConfig{}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := sonic.ConfigStd.Unmarshal(data, e); err != nil {
		return nil, err
	}
	for idx, endpoint := range e.Endpoints {
		if endpoint.URL == "" {
			return nil, fmt.Errorf("endpoint %d: missing url", idx)
		}
	}
	return e, nil
}

// ApplyTo returns a copy of the network with the configured overrides applied.
// The network named in the file takes precedence over the one passed in
func (e *EndpointsConfig) ApplyTo(network Network) Network {
	if e.Network != "" {
		network = NetworkByName(e.Network)
	}
	if e.ProgramID != nil {
		network.ProgramID = *e.ProgramID
	}
	if len(e.Endpoints) > 0 {
		network.Endpoints = append([]Endpoint(nil), e.Endpoints...)
	}
	return network
}
