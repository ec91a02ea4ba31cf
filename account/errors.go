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

import (
	"errors"
	"fmt"
)

// ErrMalformedData is matched by every decoding failure
var ErrMalformedData = errors.New("malformed account data")

// MalformedDataError describes why an account buffer could not be decoded
type MalformedDataError struct {
	Type   Type
	Need   int
	Got    int
	Reason string
}

func (e *MalformedDataError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", ErrMalformedData, e.Type, e.Reason)
	}
	return fmt.Sprintf(
		"%s: %s: need at least %d bytes, got %d",
		ErrMalformedData,
		e.Type,
		e.Need,
		e.Got,
	)
}

func (e *MalformedDataError) Is(target error) bool {
	return target == ErrMalformedData
}

func invalidField(t Type, format string, args ...any) error {
	return &MalformedDataError{
		Type:   t,
		Reason: fmt.Sprintf(format, args...),
	}
}
