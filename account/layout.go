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

import "encoding/binary"

// HeaderSize is the size of the discriminator tag that precedes every account body
const HeaderSize = 8

// layout is a read-only view over an account buffer whose length has already
// been checked against the record size. Offsets are absolute, header included.
type layout struct {
	data []byte
}

// newLayout returns a layout for src, or a MalformedDataError if src is
// shorter than size. Nothing is read from src before the check.
func newLayout(t Type, src []byte, size int) (layout, error) {
	if len(src) < size {
		return layout{}, &MalformedDataError{
			Type: t,
			Need: size,
			Got:  len(src),
		}
	}
	return layout{data: src[:size]}, nil
}

func (l layout) u8(off int) uint8 {
	return l.data[off]
}

func (l layout) u64(off int) uint64 {
	return binary.LittleEndian.Uint64(l.data[off : off+8])
}

func (l layout) i64(off int) int64 {
	return int64(l.u64(off)) // #nosec G115
}

func (l layout) u64s(off int, dst []uint64) {
	for i := range dst {
		dst[i] = l.u64(off + i*8)
	}
}

func (l layout) pubkey(off int) Pubkey {
	var ret Pubkey
	copy(ret[:], l.data[off:off+PubkeySize])
	return ret
}

func (l layout) hash(off int) [32]byte {
	var ret [32]byte
	copy(ret[:], l.data[off:off+32])
	return ret
}
