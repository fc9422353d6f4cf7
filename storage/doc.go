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

// Package storage provides the storage abstraction layer for quadkv.
//
// This package defines the BlobBackend contract that decouples graph
// persistence from the query cycle. A backend stores one opaque blob per
// key and knows nothing about RDF; the codec and the query executor sit
// on top of it.
//
// # Constructor Return Type Pattern
//
// Backend packages return concrete types from their constructors
// (badger.OpenBackend returns *badger.Backend). Consumers hold the
// BlobBackend interface:
//
//	backend, err := badger.OpenBackend(path, false)  // *badger.Backend
//	var blobs storage.BlobBackend = backend
//
// # Stored Layout
//
// Every value is an envelope holding the format tag, the payload, its
// BLAKE2b digest and the write time, serialized with mus-go. The format
// tag is the blob's out-of-band content type, so a graph written as
// JSON-LD is read back as JSON-LD without the caller repeating the format.
//
// Keys are encoded as length-prefixed segments under a fixed prefix, so a
// key prefix always encodes to a byte prefix and never matches a partial
// segment.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// Use in tests with in-memory storage:
//
//	backend, err := badger.NewMemoryBackend()
//
// # Thread Safety
//
// All backend implementations must be thread-safe and support
// concurrent access from multiple goroutines. No locking is layered over
// a key: concurrent writers to one key are last-write-wins.
//
// # Context Support
//
// All backend methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
