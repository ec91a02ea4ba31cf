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
	"math"
	"math/bits"
)

const (
	// NumPoints is the number of point numbers (4, 5, 6, 8, 9, 10)
	NumPoints = 6
	// NumHardways is the number of hardway bets (hard 4, 6, 8, 10)
	NumHardways = 4

	crapsPositionOffsetAuthority        = 8
	crapsPositionOffsetEpochID          = 40
	crapsPositionOffsetPassLine         = 48
	crapsPositionOffsetDontPass         = 56
	crapsPositionOffsetPassOdds         = 64
	crapsPositionOffsetDontPassOdds     = 72
	crapsPositionOffsetComeBets         = 80
	crapsPositionOffsetComeOdds         = crapsPositionOffsetComeBets + 8*NumPoints     // 128
	crapsPositionOffsetDontComeBets     = crapsPositionOffsetComeOdds + 8*NumPoints     // 176
	crapsPositionOffsetDontComeOdds     = crapsPositionOffsetDontComeBets + 8*NumPoints // 224
	crapsPositionOffsetPlaceBets        = crapsPositionOffsetDontComeOdds + 8*NumPoints // 272
	crapsPositionOffsetPlaceWorking     = 320
	crapsPositionOffsetHardways         = 328
	crapsPositionOffsetFieldBet         = 360
	crapsPositionOffsetAnySeven         = 368
	crapsPositionOffsetAnyCraps         = 376
	crapsPositionOffsetYoEleven         = 384
	crapsPositionOffsetAces             = 392
	crapsPositionOffsetTwelve           = 400
	crapsPositionOffsetPendingWinnings  = 408
	crapsPositionOffsetTotalWagered     = 416
	crapsPositionOffsetTotalWon         = 424
	crapsPositionOffsetTotalLost        = 432
	crapsPositionOffsetLastUpdatedRound = 440

	CrapsPositionSize = 448
)

var (
	points   = [NumPoints]uint8{4, 5, 6, 8, 9, 10}
	hardways = [NumHardways]uint8{4, 6, 8, 10}
)

// CrapsPosition holds one player's craps bets for the current epoch
type CrapsPosition struct {
	Authority        Pubkey              `json:"authority"`
	EpochID          uint64              `json:"epochId"`
	PassLine         uint64              `json:"passLine"`
	DontPass         uint64              `json:"dontPass"`
	PassOdds         uint64              `json:"passOdds"`
	DontPassOdds     uint64              `json:"dontPassOdds"`
	ComeBets         [NumPoints]uint64   `json:"comeBets"`
	ComeOdds         [NumPoints]uint64   `json:"comeOdds"`
	DontComeBets     [NumPoints]uint64   `json:"dontComeBets"`
	DontComeOdds     [NumPoints]uint64   `json:"dontComeOdds"`
	PlaceBets        [NumPoints]uint64   `json:"placeBets"`
	PlaceWorking     bool                `json:"placeWorking"`
	Hardways         [NumHardways]uint64 `json:"hardways"`
	FieldBet         uint64              `json:"fieldBet"`
	AnySeven         uint64              `json:"anySeven"`
	AnyCraps         uint64              `json:"anyCraps"`
	YoEleven         uint64              `json:"yoEleven"`
	Aces             uint64              `json:"aces"`
	Twelve           uint64              `json:"twelve"`
	PendingWinnings  uint64              `json:"pendingWinnings"`
	TotalWagered     uint64              `json:"totalWagered"`
	TotalWon         uint64              `json:"totalWon"`
	TotalLost        uint64              `json:"totalLost"`
	LastUpdatedRound uint64              `json:"lastUpdatedRound"`
}

// DecodeCrapsPosition decodes a craps position account
func DecodeCrapsPosition(src []byte) (CrapsPosition, error) {
	l, err := newLayout(TypeCrapsPosition, src, CrapsPositionSize)
	if err != nil {
		return CrapsPosition{}, err
	}
	working := l.u8(crapsPositionOffsetPlaceWorking)
	if working > 1 {
		return CrapsPosition{}, invalidField(
			TypeCrapsPosition,
			"invalid place-working flag %d",
			working,
		)
	}
	p := CrapsPosition{
		Authority:        l.pubkey(crapsPositionOffsetAuthority),
		EpochID:          l.u64(crapsPositionOffsetEpochID),
		PassLine:         l.u64(crapsPositionOffsetPassLine),
		DontPass:         l.u64(crapsPositionOffsetDontPass),
		PassOdds:         l.u64(crapsPositionOffsetPassOdds),
		DontPassOdds:     l.u64(crapsPositionOffsetDontPassOdds),
		PlaceWorking:     working == 1,
		FieldBet:         l.u64(crapsPositionOffsetFieldBet),
		AnySeven:         l.u64(crapsPositionOffsetAnySeven),
		AnyCraps:         l.u64(crapsPositionOffsetAnyCraps),
		YoEleven:         l.u64(crapsPositionOffsetYoEleven),
		Aces:             l.u64(crapsPositionOffsetAces),
		Twelve:           l.u64(crapsPositionOffsetTwelve),
		PendingWinnings:  l.u64(crapsPositionOffsetPendingWinnings),
		TotalWagered:     l.u64(crapsPositionOffsetTotalWagered),
		TotalWon:         l.u64(crapsPositionOffsetTotalWon),
		TotalLost:        l.u64(crapsPositionOffsetTotalLost),
		LastUpdatedRound: l.u64(crapsPositionOffsetLastUpdatedRound),
	}
	l.u64s(crapsPositionOffsetComeBets, p.ComeBets[:])
	l.u64s(crapsPositionOffsetComeOdds, p.ComeOdds[:])
	l.u64s(crapsPositionOffsetDontComeBets, p.DontComeBets[:])
	l.u64s(crapsPositionOffsetDontComeOdds, p.DontComeOdds[:])
	l.u64s(crapsPositionOffsetPlaceBets, p.PlaceBets[:])
	l.u64s(crapsPositionOffsetHardways, p.Hardways[:])
	return p, nil
}

// TotalActiveBets sums every open bet on the position. The sum saturates at
// math.MaxUint64 rather than wrapping
func (p CrapsPosition) TotalActiveBets() uint64 {
	var total uint64
	add := func(amounts ...uint64) {
		for _, amount := range amounts {
			sum, carry := bits.Add64(total, amount, 0)
			if carry != 0 {
				total = math.MaxUint64
				continue
			}
			total = sum
		}
	}
	add(
		p.PassLine,
		p.DontPass,
		p.PassOdds,
		p.DontPassOdds,
		p.FieldBet,
		p.AnySeven,
		p.AnyCraps,
		p.YoEleven,
		p.Aces,
		p.Twelve,
	)
	add(p.ComeBets[:]...)
	add(p.ComeOdds[:]...)
	add(p.DontComeBets[:]...)
	add(p.DontComeOdds[:]...)
	add(p.PlaceBets[:]...)
	add(p.Hardways[:]...)
	return total
}

// PointIndex returns the per-point array index for a point number, or -1
func PointIndex(point uint8) int {
	for i, p := range points {
		if p == point {
			return i
		}
	}
	return -1
}

// PointForIndex returns the point number stored at a per-point array index
func PointForIndex(idx int) (uint8, bool) {
	if idx < 0 || idx >= NumPoints {
		return 0, false
	}
	return points[idx], true
}

// HardwayIndex returns the hardway array index for a hardway number, or -1
func HardwayIndex(hardway uint8) int {
	for i, h := range hardways {
		if h == hardway {
			return i
		}
	}
	return -1
}
