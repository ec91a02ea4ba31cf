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

const (
	roundOffsetID             = 8
	roundOffsetDeployed       = 16
	roundOffsetSlotHash       = roundOffsetDeployed + 8*BoardSquares // 304
	roundOffsetCount          = roundOffsetSlotHash + 32             // 336
	roundOffsetExpiresAt      = roundOffsetCount + 8*BoardSquares    // 624
	roundOffsetMotherlode     = 632
	roundOffsetRentPayer      = 640
	roundOffsetTopMiner       = 672
	roundOffsetTopMinerReward = 704
	roundOffsetTotalDeployed  = 712
	roundOffsetTotalVaulted   = 720
	roundOffsetTotalWinnings  = 728
	roundOffsetDiceResults    = 736
	roundOffsetDiceSum        = 738

	// 5 bytes of trailing padding follow the dice sum
	RoundSize = 744
)

// Round holds the per-square deployments and the committed slot hash of one round
type Round struct {
	ID             uint64               `json:"id"`
	Deployed       [BoardSquares]uint64 `json:"deployed"`
	SlotHash       [32]byte             `json:"slotHash"`
	Count          [BoardSquares]uint64 `json:"count"`
	ExpiresAt      uint64               `json:"expiresAt"`
	Motherlode     uint64               `json:"motherlode"`
	RentPayer      Pubkey               `json:"rentPayer"`
	TopMiner       Pubkey               `json:"topMiner"`
	TopMinerReward uint64               `json:"topMinerReward"`
	TotalDeployed  uint64               `json:"totalDeployed"`
	TotalVaulted   uint64               `json:"totalVaulted"`
	TotalWinnings  uint64               `json:"totalWinnings"`
	DiceResults    [2]uint8             `json:"diceResults"`
	DiceSum        uint8                `json:"diceSum"`
}

// DecodeRound decodes a round account
func DecodeRound(src []byte) (Round, error) {
	l, err := newLayout(TypeRound, src, RoundSize)
	if err != nil {
		return Round{}, err
	}
	r := Round{
		ID:             l.u64(roundOffsetID),
		SlotHash:       l.hash(roundOffsetSlotHash),
		ExpiresAt:      l.u64(roundOffsetExpiresAt),
		Motherlode:     l.u64(roundOffsetMotherlode),
		RentPayer:      l.pubkey(roundOffsetRentPayer),
		TopMiner:       l.pubkey(roundOffsetTopMiner),
		TopMinerReward: l.u64(roundOffsetTopMinerReward),
		TotalDeployed:  l.u64(roundOffsetTotalDeployed),
		TotalVaulted:   l.u64(roundOffsetTotalVaulted),
		TotalWinnings:  l.u64(roundOffsetTotalWinnings),
		DiceResults: [2]uint8{
			l.u8(roundOffsetDiceResults),
			l.u8(roundOffsetDiceResults + 1),
		},
		DiceSum: l.u8(roundOffsetDiceSum),
	}
	l.u64s(roundOffsetDeployed, r.Deployed[:])
	l.u64s(roundOffsetCount, r.Count[:])
	if r.DiceSum != 0 && (r.DiceSum < 2 || r.DiceSum > 12) {
		return Round{}, invalidField(TypeRound, "dice sum %d out of range", r.DiceSum)
	}
	return r, nil
}

// RNG returns the XOR-reduced slot hash, or false while the hash is unset
func (r Round) RNG() (uint64, bool) {
	return SlotHashRNG(r.SlotHash)
}

// Outcome returns the slot hash outcome in [0, domain)
func (r Round) Outcome(domain uint64) (uint64, bool) {
	return Outcome(r.SlotHash, domain)
}

// WinningSquare returns the winning board square for the round
func (r Round) WinningSquare() (int, bool) {
	return WinningSquare(r.SlotHash)
}

// Roll returns the dice derived from the slot hash, or false while the hash is unset
func (r Round) Roll() (die1 uint8, die2 uint8, sum uint8, ok bool) {
	rng, ok := r.RNG()
	if !ok {
		return 0, 0, 0, false
	}
	die1, die2, sum = RollDice(rng)
	return die1, die2, sum, true
}

// SlotsRemaining returns the number of slots until the round expires, or 0 once expired
func (r Round) SlotsRemaining(currentSlot uint64) uint64 {
	if currentSlot >= r.ExpiresAt {
		return 0
	}
	return r.ExpiresAt - currentSlot
}
