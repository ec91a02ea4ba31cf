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
	boardOffsetRoundID    = 8
	boardOffsetRoundSlots = 16

	BoardSize = 24
)

// Board is the singleton account pointing at the current round
type Board struct {
	RoundID    uint64 `json:"roundId"`
	RoundSlots uint64 `json:"roundSlots"`
}

// DecodeBoard decodes a board account
func DecodeBoard(src []byte) (Board, error) {
	l, err := newLayout(TypeBoard, src, BoardSize)
	if err != nil {
		return Board{}, err
	}
	return Board{
		RoundID:    l.u64(boardOffsetRoundID),
		RoundSlots: l.u64(boardOffsetRoundSlots),
	}, nil
}
