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

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/quadkv/core"
)

// envelopeVersion leads every stored value.
const envelopeVersion byte = 1

// MarshalBlob serializes a blob envelope to bytes.
// The digest is recomputed from the payload when the blob carries none.
func MarshalBlob(blob *core.Blob, storedAt time.Time) []byte {
	digest := blob.Digest
	if digest == "" {
		digest = core.DigestOf(blob.Data)
	}
	payload := string(blob.Data)
	micros := storedAt.UnixMicro()

	size := 1 +
		ord.String.Size(blob.Format) +
		ord.String.Size(payload) +
		ord.String.Size(digest) +
		varint.Int64.Size(micros)
	buf := make([]byte, size)

	buf[0] = envelopeVersion
	n := 1
	n += ord.String.Marshal(blob.Format, buf[n:])
	n += ord.String.Marshal(payload, buf[n:])
	n += ord.String.Marshal(digest, buf[n:])
	varint.Int64.Marshal(micros, buf[n:])
	return buf
}

// UnmarshalBlob deserializes a blob envelope and verifies its digest.
// Returns the blob and the time it was stored.
func UnmarshalBlob(data []byte) (*core.Blob, time.Time, error) {
	if len(data) == 0 {
		return nil, time.Time{}, ErrTruncatedData
	}
	if data[0] != envelopeVersion {
		return nil, time.Time{}, fmt.Errorf("%w: unknown envelope version %d", ErrSerializationFailed, data[0])
	}
	n := 1

	format, read, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: format: %w", ErrSerializationFailed, err)
	}
	n += read

	payload, read, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: payload: %w", ErrSerializationFailed, err)
	}
	n += read

	digest, read, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: digest: %w", ErrSerializationFailed, err)
	}
	n += read

	micros, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: stored-at: %w", ErrSerializationFailed, err)
	}

	blob := &core.Blob{
		Format: format,
		Data:   []byte(payload),
		Digest: digest,
	}
	if got := core.DigestOf(blob.Data); got != digest {
		return nil, time.Time{}, fmt.Errorf("%w: want %s, got %s", ErrDigestMismatch, digest, got)
	}
	return blob, time.UnixMicro(micros).UTC(), nil
}
