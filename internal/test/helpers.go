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

package test

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeHexString is a helper function for tests that decodes hex strings. It doesn't return
// an error value, which makes it usable inline.
func DecodeHexString(hexData string) []byte {
	// Strip off any leading/trailing whitespace in hex string
	hexData = strings.TrimSpace(hexData)
	decoded, err := hex.DecodeString(hexData)
	if err != nil {
		panic(fmt.Sprintf("error decoding hex: %s", err))
	}
	return decoded
}

// AccountBuffer builds raw account data at fixed offsets for decoder tests
type AccountBuffer struct {
	data []byte
}

// NewAccountBuffer returns a zeroed buffer of the given size. The first byte
// holds the discriminator tag
func NewAccountBuffer(size int, tag byte) *AccountBuffer {
	b := &AccountBuffer{
		data: make([]byte, size),
	}
	if size > 0 {
		b.data[0] = tag
	}
	return b
}

func (b *AccountBuffer) PutUint8(off int, v uint8) *AccountBuffer {
	b.data[off] = v
	return b
}

func (b *AccountBuffer) PutUint64(off int, v uint64) *AccountBuffer {
	binary.LittleEndian.PutUint64(b.data[off:off+8], v)
	return b
}

func (b *AccountBuffer) PutInt64(off int, v int64) *AccountBuffer {
	return b.PutUint64(off, uint64(v)) // #nosec G115
}

func (b *AccountBuffer) PutUint64s(off int, v ...uint64) *AccountBuffer {
	for i, tmp := range v {
		b.PutUint64(off+i*8, tmp)
	}
	return b
}

func (b *AccountBuffer) PutBytes(off int, v []byte) *AccountBuffer {
	copy(b.data[off:], v)
	return b
}

// Bytes returns a copy of the buffer contents
func (b *AccountBuffer) Bytes() []byte {
	ret := make([]byte, len(b.data))
	copy(ret, b.data)
	return ret
}

// Repeat returns a byte slice of length n filled with v
func Repeat(v byte, n int) []byte {
	ret := make([]byte, n)
	for i := range ret {
		ret[i] = v
	}
	return ret
}
