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

import "math/big"

const (
	exchangePoolOffsetSolVault              = 8
	exchangePoolOffsetRngVault              = 40
	exchangePoolOffsetLpMint                = 72
	exchangePoolOffsetAdmin                 = 104
	exchangePoolOffsetSolReserve            = 136
	exchangePoolOffsetRngReserve            = 144
	exchangePoolOffsetKLow                  = 152
	exchangePoolOffsetKHigh                 = 160
	exchangePoolOffsetTotalLpSupply         = 168
	exchangePoolOffsetFeeNumerator          = 176
	exchangePoolOffsetFeeDenominator        = 184
	exchangePoolOffsetProtocolFeesSol       = 192
	exchangePoolOffsetProtocolFeesRng       = 200
	exchangePoolOffsetTotalVolumeSol        = 208
	exchangePoolOffsetTotalFeesCollectedSol = 216
	exchangePoolOffsetTotalSwaps            = 224
	exchangePoolOffsetMinimumLiquidity      = 232
	exchangePoolOffsetCreatedAt             = 240
	exchangePoolOffsetLastSwapAt            = 248
	exchangePoolOffsetBump                  = 256
	exchangePoolOffsetStatus                = 257

	ExchangePoolSize = 264

	liquidityPositionOffsetAuthority       = 8
	liquidityPositionOffsetPool            = 40
	liquidityPositionOffsetLpTokens        = 72
	liquidityPositionOffsetSolDeposited    = 80
	liquidityPositionOffsetRngDeposited    = 88
	liquidityPositionOffsetSolWithdrawn    = 96
	liquidityPositionOffsetRngWithdrawn    = 104
	liquidityPositionOffsetDepositCount    = 112
	liquidityPositionOffsetWithdrawCount   = 120
	liquidityPositionOffsetCreatedSlot     = 128
	liquidityPositionOffsetLastUpdatedSlot = 136
	liquidityPositionOffsetCreatedAt       = 144
	liquidityPositionOffsetLastUpdatedAt   = 152
	liquidityPositionOffsetBump            = 160

	LiquidityPositionSize = 168
)

// ExchangePool is the constant-product SOL/RNG pool
type ExchangePool struct {
	SolVault              Pubkey `json:"solVault"`
	RngVault              Pubkey `json:"rngVault"`
	LpMint                Pubkey `json:"lpMint"`
	Admin                 Pubkey `json:"admin"`
	SolReserve            uint64 `json:"solReserve"`
	RngReserve            uint64 `json:"rngReserve"`
	KLow                  uint64 `json:"kLow"`
	KHigh                 uint64 `json:"kHigh"`
	TotalLpSupply         uint64 `json:"totalLpSupply"`
	FeeNumerator          uint64 `json:"feeNumerator"`
	FeeDenominator        uint64 `json:"feeDenominator"`
	ProtocolFeesSol       uint64 `json:"protocolFeesSol"`
	ProtocolFeesRng       uint64 `json:"protocolFeesRng"`
	TotalVolumeSol        uint64 `json:"totalVolumeSol"`
	TotalFeesCollectedSol uint64 `json:"totalFeesCollectedSol"`
	TotalSwaps            uint64 `json:"totalSwaps"`
	MinimumLiquidity      uint64 `json:"minimumLiquidity"`
	CreatedAt             int64  `json:"createdAt"`
	LastSwapAt            int64  `json:"lastSwapAt"`
	Bump                  uint8  `json:"bump"`
	Status                uint8  `json:"status"`
}

// DecodeExchangePool decodes an exchange pool account
func DecodeExchangePool(src []byte) (ExchangePool, error) {
	l, err := newLayout(TypeExchangePool, src, ExchangePoolSize)
	if err != nil {
		return ExchangePool{}, err
	}
	return ExchangePool{
		SolVault:              l.pubkey(exchangePoolOffsetSolVault),
		RngVault:              l.pubkey(exchangePoolOffsetRngVault),
		LpMint:                l.pubkey(exchangePoolOffsetLpMint),
		Admin:                 l.pubkey(exchangePoolOffsetAdmin),
		SolReserve:            l.u64(exchangePoolOffsetSolReserve),
		RngReserve:            l.u64(exchangePoolOffsetRngReserve),
		KLow:                  l.u64(exchangePoolOffsetKLow),
		KHigh:                 l.u64(exchangePoolOffsetKHigh),
		TotalLpSupply:         l.u64(exchangePoolOffsetTotalLpSupply),
		FeeNumerator:          l.u64(exchangePoolOffsetFeeNumerator),
		FeeDenominator:        l.u64(exchangePoolOffsetFeeDenominator),
		ProtocolFeesSol:       l.u64(exchangePoolOffsetProtocolFeesSol),
		ProtocolFeesRng:       l.u64(exchangePoolOffsetProtocolFeesRng),
		TotalVolumeSol:        l.u64(exchangePoolOffsetTotalVolumeSol),
		TotalFeesCollectedSol: l.u64(exchangePoolOffsetTotalFeesCollectedSol),
		TotalSwaps:            l.u64(exchangePoolOffsetTotalSwaps),
		MinimumLiquidity:      l.u64(exchangePoolOffsetMinimumLiquidity),
		CreatedAt:             l.i64(exchangePoolOffsetCreatedAt),
		LastSwapAt:            l.i64(exchangePoolOffsetLastSwapAt),
		Bump:                  l.u8(exchangePoolOffsetBump),
		Status:                l.u8(exchangePoolOffsetStatus),
	}, nil
}

// K returns the 128-bit constant product stored as two 64-bit halves
func (p ExchangePool) K() *big.Int {
	k := new(big.Int).SetUint64(p.KHigh)
	k.Lsh(k, 64)
	return k.Or(k, new(big.Int).SetUint64(p.KLow))
}

// LiquidityPosition tracks one provider's share of an exchange pool
type LiquidityPosition struct {
	Authority       Pubkey `json:"authority"`
	Pool            Pubkey `json:"pool"`
	LpTokens        uint64 `json:"lpTokens"`
	SolDeposited    uint64 `json:"solDeposited"`
	RngDeposited    uint64 `json:"rngDeposited"`
	SolWithdrawn    uint64 `json:"solWithdrawn"`
	RngWithdrawn    uint64 `json:"rngWithdrawn"`
	DepositCount    uint64 `json:"depositCount"`
	WithdrawCount   uint64 `json:"withdrawCount"`
	CreatedSlot     uint64 `json:"createdSlot"`
	LastUpdatedSlot uint64 `json:"lastUpdatedSlot"`
	CreatedAt       int64  `json:"createdAt"`
	LastUpdatedAt   int64  `json:"lastUpdatedAt"`
	Bump            uint8  `json:"bump"`
}

// DecodeLiquidityPosition decodes a liquidity position account
func DecodeLiquidityPosition(src []byte) (LiquidityPosition, error) {
	l, err := newLayout(TypeLiquidityPosition, src, LiquidityPositionSize)
	if err != nil {
		return LiquidityPosition{}, err
	}
	return LiquidityPosition{
		Authority:       l.pubkey(liquidityPositionOffsetAuthority),
		Pool:            l.pubkey(liquidityPositionOffsetPool),
		LpTokens:        l.u64(liquidityPositionOffsetLpTokens),
		SolDeposited:    l.u64(liquidityPositionOffsetSolDeposited),
		RngDeposited:    l.u64(liquidityPositionOffsetRngDeposited),
		SolWithdrawn:    l.u64(liquidityPositionOffsetSolWithdrawn),
		RngWithdrawn:    l.u64(liquidityPositionOffsetRngWithdrawn),
		DepositCount:    l.u64(liquidityPositionOffsetDepositCount),
		WithdrawCount:   l.u64(liquidityPositionOffsetWithdrawCount),
		CreatedSlot:     l.u64(liquidityPositionOffsetCreatedSlot),
		LastUpdatedSlot: l.u64(liquidityPositionOffsetLastUpdatedSlot),
		CreatedAt:       l.i64(liquidityPositionOffsetCreatedAt),
		LastUpdatedAt:   l.i64(liquidityPositionOffsetLastUpdatedAt),
		Bump:            l.u8(liquidityPositionOffsetBump),
	}, nil
}
