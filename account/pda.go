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
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

// Account seeds used by the program
var (
	SeedBoard         = []byte("board")
	SeedRound         = []byte("round")
	SeedCrapsGame     = []byte("craps_game")
	SeedCrapsPosition = []byte("craps_position")
	SeedSession       = []byte("session")
	SeedExchangePool  = []byte("exchange_pool")
)

var (
	ErrMaxSeedsExceeded  = errors.New("too many seeds")
	ErrSeedTooLong       = errors.New("seed too long")
	ErrNoViableBumpSeed  = errors.New("no viable bump seed")
	ErrAddressOnCurve    = errors.New("derived address is on the ed25519 curve")
	ErrMissingProgramID  = errors.New("program id not set")
	errSeedsWithBumpFull = fmt.Errorf("%w: no room for bump seed", ErrMaxSeedsExceeded)
)

// CreateProgramAddress derives an address from the seeds and program id. It fails
// if the resulting digest is a valid ed25519 point, since such an address could
// have a private key.
func CreateProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return Pubkey{}, ErrMaxSeedsExceeded
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Pubkey{}, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))
	var ret Pubkey
	copy(ret[:], h.Sum(nil))
	if isOnCurve(ret[:]) {
		return Pubkey{}, ErrAddressOnCurve
	}
	return ret, nil
}

// FindProgramAddress searches bump seeds from 255 down and returns the first
// off-curve address along with its bump
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Pubkey{}, 0, errSeedsWithBumpFull
	}
	tmpSeeds := make([][]byte, len(seeds), len(seeds)+1)
	copy(tmpSeeds, seeds)
	tmpSeeds = append(tmpSeeds, nil)
	for bump := 255; bump >= 0; bump-- {
		tmpSeeds[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(tmpSeeds, programID)
		if err == nil {
			return addr, uint8(bump), nil // #nosec G115
		}
		if !errors.Is(err, ErrAddressOnCurve) {
			return Pubkey{}, 0, err
		}
	}
	return Pubkey{}, 0, ErrNoViableBumpSeed
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

func findProgramAddress(programID Pubkey, seeds ...[]byte) (Pubkey, error) {
	if programID.IsZero() {
		return Pubkey{}, ErrMissingProgramID
	}
	addr, _, err := FindProgramAddress(seeds, programID)
	return addr, err
}

// BoardAddress returns the address of the singleton board account
func BoardAddress(programID Pubkey) (Pubkey, error) {
	return findProgramAddress(programID, SeedBoard)
}

// RoundAddress returns the address of the round account with the given id
func RoundAddress(programID Pubkey, roundID uint64) (Pubkey, error) {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, roundID)
	return findProgramAddress(programID, SeedRound, idBytes)
}

// CrapsGameAddress returns the address of the singleton craps game account
func CrapsGameAddress(programID Pubkey) (Pubkey, error) {
	return findProgramAddress(programID, SeedCrapsGame)
}

// CrapsPositionAddress returns the address of the craps position owned by authority
func CrapsPositionAddress(programID Pubkey, authority Pubkey) (Pubkey, error) {
	return findProgramAddress(programID, SeedCrapsPosition, authority[:])
}

// SessionAddress returns the address of the session account owned by authority
func SessionAddress(programID Pubkey, authority Pubkey) (Pubkey, error) {
	return findProgramAddress(programID, SeedSession, authority[:])
}

// ExchangePoolAddress returns the address of the singleton exchange pool account
func ExchangePoolAddress(programID Pubkey) (Pubkey, error) {
	return findProgramAddress(programID, SeedExchangePool)
}
