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

// Package account decodes the fixed-layout program accounts read from the ledger.
//
// Every account starts with an 8-byte discriminator header followed by
// little-endian fields at fixed offsets. Decoders check the buffer length
// against the full record size before reading anything and return fresh value
// records that never alias the input buffer.
package account

import "fmt"

// Type identifies a program account layout
type Type uint8

const (
	TypeUnknown Type = iota
	TypeBoard
	TypeRound
	TypeCrapsGame
	TypeCrapsPosition
	TypeSession
	TypeExchangePool
	TypeLiquidityPosition
)

var typeNames = map[Type]string{
	TypeBoard:             "board",
	TypeRound:             "round",
	TypeCrapsGame:         "craps_game",
	TypeCrapsPosition:     "craps_position",
	TypeSession:           "session",
	TypeExchangePool:      "exchange_pool",
	TypeLiquidityPosition: "liquidity_position",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Size returns the minimum buffer length for the account type, header included
func (t Type) Size() int {
	switch t {
	case TypeBoard:
		return BoardSize
	case TypeRound:
		return RoundSize
	case TypeCrapsGame:
		return CrapsGameSize
	case TypeCrapsPosition:
		return CrapsPositionSize
	case TypeSession:
		return SessionSize
	case TypeExchangePool:
		return ExchangePoolSize
	case TypeLiquidityPosition:
		return LiquidityPositionSize
	}
	return 0
}

// TypeByName returns the account type with the given name, or TypeUnknown
func TypeByName(name string) Type {
	for t, tmpName := range typeNames {
		if tmpName == name {
			return t
		}
	}
	return TypeUnknown
}

// Decode decodes src as the given account type and returns the record as an any.
// It is meant for tools that pick the layout at runtime; library code should
// call the typed decoders directly.
func Decode(t Type, src []byte) (any, error) {
	switch t {
	case TypeBoard:
		return DecodeBoard(src)
	case TypeRound:
		return DecodeRound(src)
	case TypeCrapsGame:
		return DecodeCrapsGame(src)
	case TypeCrapsPosition:
		return DecodeCrapsPosition(src)
	case TypeSession:
		return DecodeSession(src)
	case TypeExchangePool:
		return DecodeExchangePool(src)
	case TypeLiquidityPosition:
		return DecodeLiquidityPosition(src)
	}
	return nil, fmt.Errorf("unsupported account type: %d", t)
}
