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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var (
	cachedEncMode   cbor.EncMode
	cachedDecMode   cbor.DecMode
	cachedModesErr  error
	cachedModesOnce sync.Once
)

func getModes() (cbor.EncMode, cbor.DecMode, error) {
	cachedModesOnce.Do(func() {
		encOptions := cbor.EncOptions{
			// Make sure that maps have ordered keys
			Sort: cbor.SortCoreDeterministic,
			Time: cbor.TimeRFC3339Nano,
		}
		cachedEncMode, cachedModesErr = encOptions.EncMode()
		if cachedModesErr != nil {
			return
		}
		decOptions := cbor.DecOptions{
			ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		}
		cachedDecMode, cachedModesErr = decOptions.DecMode()
	})
	return cachedEncMode, cachedDecMode, cachedModesErr
}

// FileStore keeps all entries in a single CBOR file. Every save rewrites the
// file through a temporary file and a rename, so a crash never leaves a
// partially written cache
type FileStore struct {
	path    string
	mu      sync.Mutex
	entries map[string]Entry
	closed  bool
}

// NewFileStore opens the store at path, loading any existing entries. A missing
// file is not an error
func NewFileStore(path string) (*FileStore, error) {
	f := &FileStore{
		path:    path,
		entries: make(map[string]Entry),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return f, nil
	}
	_, decMode, err := getModes()
	if err != nil {
		return nil, err
	}
	if err := decMode.Unmarshal(data, &f.entries); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	return f, nil
}

func (f *FileStore) Load(key string) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Entry{}, false, ErrClosed
	}
	entry, ok := f.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	entry.Data = cloneBytes(entry.Data)
	return entry, true, nil
}

func (f *FileStore) Save(key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	prev, hadPrev := f.entries[key]
	f.entries[key] = Entry{
		Data:    cloneBytes(data),
		SavedAt: time.Now(),
	}
	if err := f.flush(); err != nil {
		// Keep memory consistent with what is on disk
		if hadPrev {
			f.entries[key] = prev
		} else {
			delete(f.entries, key)
		}
		return err
	}
	return nil
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FileStore) flush() error {
	encMode, _, err := getModes()
	if err != nil {
		return err
	}
	data, err := encMode.Marshal(f.entries)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
