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

package ingestion

import (
	"context"
	"fmt"
	"os"

	"github.com/poiesic/quadkv/core"
)

// Importer stores a serialized graph at a key.
type Importer interface {
	ImportGraph(ctx context.Context, key core.Key, blob *core.Blob, opts *core.Options) (*core.Commit, error)
}

// processor turns one source into a commit.
type processor interface {
	process(ctx context.Context, src Source) (*core.Commit, error)
}

type importProcessor struct {
	importer Importer
	opts     *core.Options
}

func (p *importProcessor) process(ctx context.Context, src Source) (*core.Commit, error) {
	data := src.Data
	if data == nil {
		if src.Path == "" {
			return nil, ErrNoData
		}
		raw, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src.Path, err)
		}
		data = raw
	}
	return p.importer.ImportGraph(ctx, src.Key, core.NewBlob(src.Format, data), p.opts)
}
