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

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable indicates the storage layer could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrUnsupportedFormat indicates a serialization format has no codec.
	ErrUnsupportedFormat = errors.New("unsupported serialization format")

	// ErrParse indicates stored bytes do not match the declared format.
	ErrParse = errors.New("malformed graph data")

	// ErrQuery indicates the query engine rejected or failed a query.
	ErrQuery = errors.New("query failed")

	// ErrInvalidKey indicates an empty key or an empty key segment.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidOptions indicates an Options value failed validation.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrInvalidConsistency indicates an unknown consistency level name.
	ErrInvalidConsistency = errors.New("consistency must be strong or eventual")
)

// ParseError reports graph data that could not be decoded.
type ParseError struct {
	Format   string // Format the data was decoded as
	Position string // Where parsing stopped, if known
	Err      error  // Underlying parser error
}

func (e *ParseError) Error() string {
	if e.Position != "" {
		return fmt.Sprintf("parse %s at %s: %v", e.Format, e.Position, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// QueryError carries the query engine's diagnostic for a rejected or
// failed query.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is makes every QueryError match ErrQuery.
func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}
