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

package poller

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/blinklabs-io/acctsync/account"
	"github.com/blinklabs-io/acctsync/rpc"
)

// SlotTracker holds the latest known slot height
type SlotTracker struct {
	slot atomic.Uint64
}

// Update records slot if it is newer than the current value
func (t *SlotTracker) Update(slot uint64) {
	for {
		current := t.slot.Load()
		if slot <= current {
			return
		}
		if t.slot.CompareAndSwap(current, slot) {
			return
		}
	}
}

// Slot returns the latest known slot, or 0 if none has been seen
func (t *SlotTracker) Slot() uint64 {
	return t.slot.Load()
}

// DeadlineWithin returns an urgency func that reports whether the deadline slot
// of a value is within horizon slots of the tracker's current slot. A deadline
// of 0 or math.MaxUint64 means there is no deadline. Nothing is urgent until
// the tracker has seen a slot
func DeadlineWithin[T any](tracker *SlotTracker, horizon uint64, deadline func(T) uint64) func(T) bool {
	return func(v T) bool {
		current := tracker.Slot()
		if current == 0 {
			return false
		}
		end := deadline(v)
		if end == 0 || end == math.MaxUint64 {
			return false
		}
		if end <= current {
			// Past the deadline the next state is imminent
			return true
		}
		return end-current <= horizon
	}
}

// AccountFetch returns a FetchFunc that reads the account at address
func AccountFetch(address account.Pubkey) FetchFunc {
	return AccountFetchFunc(func() account.Pubkey { return address })
}

// AccountFetchFunc returns a FetchFunc that reads the account at whatever
// address addressFunc returns at fetch time. Pair it with Invalidate to
// retarget a scheduler
func AccountFetchFunc(addressFunc func() account.Pubkey) FetchFunc {
	return func(ctx context.Context, transport rpc.Transport) ([]byte, error) {
		info, err := transport.FetchAccount(ctx, addressFunc())
		if err != nil {
			return nil, err
		}
		if info == nil {
			return nil, nil
		}
		if info.Data == nil {
			return []byte{}, nil
		}
		return info.Data, nil
	}
}

// SlotFetch is a FetchFunc that reads the current slot height, encoded for DecodeSlot
func SlotFetch(ctx context.Context, transport rpc.Transport) ([]byte, error) {
	slot, err := transport.FetchSlotHeight(ctx)
	if err != nil {
		return nil, err
	}
	return binary.LittleEndian.AppendUint64(nil, slot), nil
}

// DecodeSlot decodes the output of SlotFetch
func DecodeSlot(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: slot height: need 8 bytes, got %d", account.ErrMalformedData, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}
