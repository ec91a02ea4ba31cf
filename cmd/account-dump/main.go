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

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blinklabs-io/acctsync"
	"github.com/blinklabs-io/acctsync/account"
	"github.com/blinklabs-io/acctsync/cmd/common"
	"github.com/blinklabs-io/acctsync/rpc"
	"github.com/bytedance/sonic"
	"github.com/fxamacker/cbor/v2"
)

const (
	formatJSON = "json"
	formatCBOR = "cbor"
)

type dumpOutput struct {
	Address  account.Pubkey `json:"address"`
	Type     string         `json:"type"`
	Owner    account.Pubkey `json:"owner"`
	Lamports uint64         `json:"lamports"`
	Slot     uint64         `json:"slot"`
	Data     any            `json:"data"`
}

type dumpFlags struct {
	*common.GlobalFlags
	accountType string
	address     string
	roundID     uint64
	authority   string
	format      string
	timeout     time.Duration
}

func newDumpFlags() *dumpFlags {
	f := &dumpFlags{
		GlobalFlags: common.NewGlobalFlags(),
	}
	f.Flagset.StringVar(
		&f.accountType,
		"type",
		"board",
		"account type: board, round, craps_game, craps_position, session, exchange_pool, liquidity_position",
	)
	f.Flagset.StringVar(
		&f.address,
		"address",
		"",
		"base58 account address. derived from the program ID if not given",
	)
	f.Flagset.Uint64Var(&f.roundID, "round-id", 0, "round ID, for deriving a round address")
	f.Flagset.StringVar(
		&f.authority,
		"authority",
		"",
		"wallet address, for deriving per-player addresses",
	)
	f.Flagset.StringVar(
		&f.format,
		"format",
		formatJSON,
		"output format: json or cbor (core deterministic encoding, written raw)",
	)
	f.Flagset.DurationVar(&f.timeout, "timeout", 30*time.Second, "overall timeout")
	return f
}

func main() {
	f := newDumpFlags()
	f.Parse()
	logger := f.NewLogger()

	network, err := f.Resolve()
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	if f.format != formatJSON && f.format != formatCBOR {
		fmt.Printf("ERROR: unknown output format: %s\n", f.format)
		os.Exit(1)
	}
	accountType := account.TypeByName(f.accountType)
	if accountType == account.TypeUnknown {
		fmt.Printf("ERROR: unknown account type: %s\n", f.accountType)
		os.Exit(1)
	}
	address, err := f.resolveAddress(accountType, network.ProgramID)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}

	cm, err := acctsync.NewConnectionManager(
		acctsync.WithNetwork(network),
		acctsync.WithLogger(logger),
	)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	defer cm.Close()

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	info, err := acctsync.WithFallback(
		ctx,
		cm,
		func(ctx context.Context, transport rpc.Transport) (*rpc.AccountInfo, error) {
			return transport.FetchAccount(ctx, address)
		},
	)
	if err != nil {
		fmt.Printf("ERROR: failed to fetch account: %s\n", err)
		os.Exit(1)
	}
	if info == nil {
		fmt.Printf("ERROR: account %s not found\n", address)
		os.Exit(1)
	}
	record, err := account.Decode(accountType, info.Data)
	if err != nil {
		fmt.Printf("ERROR: failed to decode %s account: %s\n", accountType, err)
		os.Exit(1)
	}
	out, err := encodeOutput(
		f.format,
		dumpOutput{
			Address:  address,
			Type:     accountType.String(),
			Owner:    info.Owner,
			Lamports: info.Lamports,
			Slot:     info.Slot,
			Data:     record,
		},
	)
	if err != nil {
		fmt.Printf("ERROR: failed to encode output: %s\n", err)
		os.Exit(1)
	}
	if _, err := os.Stdout.Write(out); err != nil {
		os.Exit(1)
	}
}

func encodeOutput(format string, out dumpOutput) ([]byte, error) {
	switch format {
	case formatJSON:
		data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case formatCBOR:
		// Field names come from the json tags
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return nil, err
		}
		return em.Marshal(out)
	}
	return nil, fmt.Errorf("unknown output format: %s", format)
}

func (f *dumpFlags) resolveAddress(t account.Type, programID account.Pubkey) (account.Pubkey, error) {
	if f.address != "" {
		return account.ParsePubkey(f.address)
	}
	var authority account.Pubkey
	if f.authority != "" {
		var err error
		authority, err = account.ParsePubkey(f.authority)
		if err != nil {
			return account.Pubkey{}, fmt.Errorf("invalid authority: %w", err)
		}
	}
	switch t {
	case account.TypeBoard:
		return account.BoardAddress(programID)
	case account.TypeRound:
		return account.RoundAddress(programID, f.roundID)
	case account.TypeCrapsGame:
		return account.CrapsGameAddress(programID)
	case account.TypeExchangePool:
		return account.ExchangePoolAddress(programID)
	case account.TypeCrapsPosition, account.TypeSession:
		if authority.IsZero() {
			return account.Pubkey{}, fmt.Errorf("-authority is required to derive a %s address", t)
		}
		if t == account.TypeSession {
			return account.SessionAddress(programID, authority)
		}
		return account.CrapsPositionAddress(programID, authority)
	}
	return account.Pubkey{}, fmt.Errorf("-address is required for %s accounts", t)
}
