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
	"encoding/binary"
	"math"

	"golang.org/x/crypto/sha3"
)

// BoardSquares is the number of squares on the board (a 6x6 dice grid)
const BoardSquares = 36

var (
	hashUnsetZero = [32]byte{}
	hashUnsetFull = [32]byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}
)

// HashIsSet returns false when the hash holds one of the "not yet set" sentinels
// (all zeros or all 0xFF)
func HashIsSet(hash [32]byte) bool {
	return hash != hashUnsetZero && hash != hashUnsetFull
}

// SlotHashRNG XOR-reduces the four little-endian 64-bit words of the hash. The
// second return value is false when the hash is not set yet.
func SlotHashRNG(hash [32]byte) (uint64, bool) {
	if !HashIsSet(hash) {
		return 0, false
	}
	r1 := binary.LittleEndian.Uint64(hash[0:8])
	r2 := binary.LittleEndian.Uint64(hash[8:16])
	r3 := binary.LittleEndian.Uint64(hash[16:24])
	r4 := binary.LittleEndian.Uint64(hash[24:32])
	return r1 ^ r2 ^ r3 ^ r4, true
}

// Outcome maps the hash onto [0, domain). It is unavailable for an unset hash or
// an empty domain, and never reported as a false zero.
func Outcome(hash [32]byte, domain uint64) (uint64, bool) {
	if domain == 0 {
		return 0, false
	}
	rng, ok := SlotHashRNG(hash)
	if !ok {
		return 0, false
	}
	return rng % domain, true
}

// WinningSquare picks a board square from the Keccak-256 digest of the hash,
// rehashing once when the first sample falls in the biased tail
func WinningSquare(hash [32]byte) (int, bool) {
	if !HashIsSet(hash) {
		return 0, false
	}
	digest := keccak256(hash[:])
	sample := binary.LittleEndian.Uint64(digest[0:8])
	const squares = uint64(BoardSquares)
	maxValid := (math.MaxUint64 / squares) * squares
	if sample >= maxValid {
		digest = keccak256(digest)
		sample = binary.LittleEndian.Uint64(digest[0:8])
	}
	return int(sample % squares), true // #nosec G115
}

// RollDice derives two dice from the RNG value, using different bits for each die
func RollDice(rng uint64) (die1 uint8, die2 uint8, sum uint8) {
	die1 = uint8(rng%6) + 1       // #nosec G115
	die2 = uint8((rng>>16)%6) + 1 // #nosec G115
	return die1, die2, die1 + die2
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
