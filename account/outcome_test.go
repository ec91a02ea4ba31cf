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
	"testing"

	"github.com/stretchr/testify/assert"
)

func hashFromWords(r1, r2, r3, r4 uint64) [32]byte {
	var ret [32]byte
	binary.LittleEndian.PutUint64(ret[0:8], r1)
	binary.LittleEndian.PutUint64(ret[8:16], r2)
	binary.LittleEndian.PutUint64(ret[16:24], r3)
	binary.LittleEndian.PutUint64(ret[24:32], r4)
	return ret
}

func TestOutcomeSentinels(t *testing.T) {
	for _, hash := range [][32]byte{hashUnsetZero, hashUnsetFull} {
		assert.False(t, HashIsSet(hash))
		_, ok := SlotHashRNG(hash)
		assert.False(t, ok)
		outcome, ok := Outcome(hash, BoardSquares)
		assert.False(t, ok)
		assert.Equal(t, uint64(0), outcome)
		_, ok = WinningSquare(hash)
		assert.False(t, ok)
		_, _, _, ok = Round{SlotHash: hash}.Roll()
		assert.False(t, ok)
	}
}

func TestOutcomeXorReduce(t *testing.T) {
	testDefs := []struct {
		hash     [32]byte
		domain   uint64
		expected uint64
	}{
		{
			hash:     hashFromWords(1, 2, 4, 8),
			domain:   BoardSquares,
			expected: 15,
		},
		{
			hash:     hashFromWords(math.MaxUint64, 0, 0, 0),
			domain:   BoardSquares,
			expected: math.MaxUint64 % BoardSquares,
		},
		{
			hash:     hashFromWords(0xdeadbeef, 0xdeadbeef, 7, 0),
			domain:   6,
			expected: 1,
		},
		{
			// An all-0xFF first word alone is not the sentinel
			hash:     hashFromWords(math.MaxUint64, math.MaxUint64, math.MaxUint64, 0),
			domain:   1 << 32,
			expected: 0xffffffff,
		},
	}
	for _, testDef := range testDefs {
		outcome, ok := Outcome(testDef.hash, testDef.domain)
		assert.True(t, ok)
		assert.Equal(t, testDef.expected, outcome)
		// Same hash, same outcome
		again, _ := Outcome(testDef.hash, testDef.domain)
		assert.Equal(t, outcome, again)
	}
}

func TestOutcomeZeroDomain(t *testing.T) {
	_, ok := Outcome(hashFromWords(1, 0, 0, 0), 0)
	assert.False(t, ok)
}

func TestOutcomeSingleByteSet(t *testing.T) {
	var hash [32]byte
	hash[31] = 0x01
	rng, ok := SlotHashRNG(hash)
	assert.True(t, ok)
	assert.Equal(t, uint64(1)<<56, rng)
}

func TestWinningSquare(t *testing.T) {
	for i := uint64(1); i < 200; i++ {
		hash := hashFromWords(i, i*31, i*977, 0)
		square, ok := WinningSquare(hash)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, square, 0)
		assert.Less(t, square, BoardSquares)
		again, _ := WinningSquare(hash)
		assert.Equal(t, square, again)
	}
}

func TestRollDice(t *testing.T) {
	testDefs := []struct {
		rng  uint64
		die1 uint8
		die2 uint8
	}{
		{rng: 0, die1: 1, die2: 1},
		{rng: 5, die1: 6, die2: 1},
		{rng: 0x10005, die1: 4, die2: 2},
	}
	for _, testDef := range testDefs {
		die1, die2, sum := RollDice(testDef.rng)
		assert.Equal(t, testDef.die1, die1)
		assert.Equal(t, testDef.die2, die2)
		assert.Equal(t, die1+die2, sum)
	}
	for _, rng := range []uint64{1, 10, 100, 1000, math.MaxUint64 / 2, math.MaxUint64} {
		die1, die2, sum := RollDice(rng)
		assert.True(t, die1 >= 1 && die1 <= 6)
		assert.True(t, die2 >= 1 && die2 <= 6)
		assert.True(t, sum >= 2 && sum <= 12)
	}
}
