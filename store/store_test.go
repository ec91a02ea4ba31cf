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

package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "cache.cbor"))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Load("board")
			require.NoError(t, err)
			assert.False(t, ok)

			data := []byte{1, 2, 3}
			before := time.Now()
			require.NoError(t, s.Save("board", data))
			// Caller mutation after save has no effect
			data[0] = 0xff
			entry, ok, err := s.Load("board")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte{1, 2, 3}, entry.Data)
			assert.WithinDuration(t, before, entry.SavedAt, time.Second)
			// Neither does mutation of a loaded copy
			entry.Data[1] = 0xff
			again, _, err := s.Load("board")
			require.NoError(t, err)
			assert.Equal(t, []byte{1, 2, 3}, again.Data)

			require.NoError(t, s.Save("board", []byte{4}))
			entry, _, err = s.Load("board")
			require.NoError(t, err)
			assert.Equal(t, []byte{4}, entry.Data)

			require.NoError(t, s.Close())
			_, _, err = s.Load("board")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Save("board", nil), ErrClosed)
		})
	}
}

func TestStoreConcurrent(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := string(rune('a' + i))
					for j := 0; j < 10; j++ {
						assert.NoError(t, s.Save(key, []byte{byte(i), byte(j)}))
						_, _, err := s.Load(key)
						assert.NoError(t, err)
					}
				}(i)
			}
			wg.Wait()
			for i := 0; i < 8; i++ {
				entry, ok, err := s.Load(string(rune('a' + i)))
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, []byte{byte(i), 9}, entry.Data)
			}
		})
	}
}

func TestFileStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.cbor")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("round", []byte("round-data")))
	require.NoError(t, s.Save("board", []byte("board-data")))
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	entry, ok, err := reopened.Load("round")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("round-data"), entry.Data)
	assert.False(t, entry.SavedAt.IsZero())

	// No temp files are left behind
	matches, err := filepath.Glob(path + ".tmp-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.cbor")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0x00, 0x13}, 0o600))
	_, err := NewFileStore(path)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.cbor")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	s, err := NewFileStore(empty)
	require.NoError(t, err)
	_, ok, err := s.Load("board")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "cache.cbor")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Error(t, s.Save("board", []byte{1}))
	// The failed save is not visible
	_, ok, err := s.Load("board")
	require.NoError(t, err)
	assert.False(t, ok)
}
