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

import "time"

const (
	sessionOffsetAuthority         = 8
	sessionOffsetDelegate          = 40
	sessionOffsetExpiresAt         = 72
	sessionOffsetCreatedAt         = 80
	sessionOffsetAllowedOperations = 88

	// 32 reserved bytes follow the operations mask
	SessionSize = 128
)

// SessionOperation is a bit position in the session's allowed operations mask
type SessionOperation uint8

const (
	SessionOperationGames          SessionOperation = 0
	SessionOperationSwaps          SessionOperation = 1
	SessionOperationStakingDeposit SessionOperation = 2
	SessionOperationMining         SessionOperation = 3
)

// Session lets a delegate key act for a user until it expires
type Session struct {
	Authority         Pubkey `json:"authority"`
	Delegate          Pubkey `json:"delegate"`
	ExpiresAt         int64  `json:"expiresAt"`
	CreatedAt         int64  `json:"createdAt"`
	AllowedOperations uint64 `json:"allowedOperations"`
}

// DecodeSession decodes a session account
func DecodeSession(src []byte) (Session, error) {
	l, err := newLayout(TypeSession, src, SessionSize)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Authority:         l.pubkey(sessionOffsetAuthority),
		Delegate:          l.pubkey(sessionOffsetDelegate),
		ExpiresAt:         l.i64(sessionOffsetExpiresAt),
		CreatedAt:         l.i64(sessionOffsetCreatedAt),
		AllowedOperations: l.u64(sessionOffsetAllowedOperations),
	}, nil
}

// Valid returns true while the session has not expired
func (s Session) Valid(now time.Time) bool {
	return now.Unix() < s.ExpiresAt
}

// Allows returns true if the session's mask permits the operation
func (s Session) Allows(op SessionOperation) bool {
	return s.AllowedOperations&(1<<uint64(op)) != 0
}
