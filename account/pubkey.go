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

package account

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

const PubkeySize = 32

// Pubkey is a 32-byte account address
type Pubkey [PubkeySize]byte

var ErrInvalidPubkey = errors.New("invalid pubkey")

// ParsePubkey decodes a base58 account address
func ParsePubkey(s string) (Pubkey, error) {
	var ret Pubkey
	if s == "" {
		return ret, fmt.Errorf("%w: empty string", ErrInvalidPubkey)
	}
	decoded := base58.Decode(s)
	// base58.Decode returns an empty slice on invalid characters
	if len(decoded) != PubkeySize {
		return ret, fmt.Errorf(
			"%w: %q decodes to %d bytes",
			ErrInvalidPubkey,
			s,
			len(decoded),
		)
	}
	copy(ret[:], decoded)
	return ret, nil
}

// MustParsePubkey is like ParsePubkey but panics on error. It is intended for constants
func MustParsePubkey(s string) Pubkey {
	ret, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return ret
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero returns true for the all-zero (default) address
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(data []byte) error {
	tmp, err := ParsePubkey(string(data))
	if err != nil {
		return err
	}
	*p = tmp
	return nil
}
