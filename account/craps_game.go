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
	crapsGameOffsetEpochID         = 8
	crapsGameOffsetPoint           = 16
	crapsGameOffsetIsComeOut       = 17
	crapsGameOffsetEpochStartRound = 24
	crapsGameOffsetHouseBankroll   = 32
	crapsGameOffsetTotalPayouts    = 40
	crapsGameOffsetTotalCollected  = 48
	crapsGameOffsetReservedPayouts = 56

	CrapsGameSize = 64
)

// CrapsGame is the singleton account tracking the craps epoch and point
type CrapsGame struct {
	EpochID         uint64 `json:"epochId"`
	Point           uint8  `json:"point"`
	IsComeOut       bool   `json:"isComeOut"`
	EpochStartRound uint64 `json:"epochStartRound"`
	HouseBankroll   uint64 `json:"houseBankroll"`
	TotalPayouts    uint64 `json:"totalPayouts"`
	TotalCollected  uint64 `json:"totalCollected"`
	ReservedPayouts uint64 `json:"reservedPayouts"`
}

// DecodeCrapsGame decodes a craps game account
func DecodeCrapsGame(src []byte) (CrapsGame, error) {
	l, err := newLayout(TypeCrapsGame, src, CrapsGameSize)
	if err != nil {
		return CrapsGame{}, err
	}
	point := l.u8(crapsGameOffsetPoint)
	if point != 0 && PointIndex(point) < 0 {
		return CrapsGame{}, invalidField(TypeCrapsGame, "invalid point %d", point)
	}
	comeOut := l.u8(crapsGameOffsetIsComeOut)
	if comeOut > 1 {
		return CrapsGame{}, invalidField(TypeCrapsGame, "invalid come-out flag %d", comeOut)
	}
	return CrapsGame{
		EpochID:         l.u64(crapsGameOffsetEpochID),
		Point:           point,
		IsComeOut:       comeOut == 1,
		EpochStartRound: l.u64(crapsGameOffsetEpochStartRound),
		HouseBankroll:   l.u64(crapsGameOffsetHouseBankroll),
		TotalPayouts:    l.u64(crapsGameOffsetTotalPayouts),
		TotalCollected:  l.u64(crapsGameOffsetTotalCollected),
		ReservedPayouts: l.u64(crapsGameOffsetReservedPayouts),
	}, nil
}

// HasPoint returns true once a point is established
func (g CrapsGame) HasPoint() bool {
	return g.Point != 0
}

// AvailableBankroll returns the bankroll not reserved for pending payouts
func (g CrapsGame) AvailableBankroll() uint64 {
	if g.ReservedPayouts >= g.HouseBankroll {
		return 0
	}
	return g.HouseBankroll - g.ReservedPayouts
}
