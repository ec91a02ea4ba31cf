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

// Package store keeps the last known good raw account data for each polled
// resource, so a restarted consumer has something to show before the first
// successful fetch.
package store

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("store: closed")

// Entry is a saved copy of a resource's raw data
type Entry struct {
	Data    []byte    `cbor:"1,keyasint"`
	SavedAt time.Time `cbor:"2,keyasint"`
}

// Store persists raw resource data by key. Implementations must be safe for concurrent use
type Store interface {
	// Load returns the entry for key. The bool is false if there is no entry
	Load(key string) (Entry, bool, error)
	Save(key string, data []byte) error
	Close() error
}

func cloneBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	ret := make([]byte, len(src))
	copy(ret, src)
	return ret
}
