// Copyright 2025 Poiesic Systems
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

package core

import "fmt"

// ValidateKey validates a storage key.
//
// Validation rules:
//   - Key must have at least one segment
//   - No segment may be empty
func ValidateKey(key Key) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: key has no segments", ErrInvalidKey)
	}
	for i, seg := range key {
		if seg == "" {
			return fmt.Errorf("%w: segment %d is empty", ErrInvalidKey, i)
		}
	}
	return nil
}

// ValidateOptions validates cycle options. A nil Options is valid.
//
// Validation rules:
//   - Consistency must be strong or eventual
//   - ExpireIn must not be negative
//
// NOT validated (checked against the codec registry by the caller):
//   - Format
func ValidateOptions(opts *Options) error {
	if opts == nil {
		return nil
	}
	if opts.Consistency != ConsistencyStrong && opts.Consistency != ConsistencyEventual {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, ErrInvalidConsistency)
	}
	if opts.ExpireIn < 0 {
		return fmt.Errorf("%w: expireIn %s is negative", ErrInvalidOptions, opts.ExpireIn)
	}
	return nil
}
