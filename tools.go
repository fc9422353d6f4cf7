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

package quadkv

import (
	"io"

	"github.com/poiesic/quadkv/ingestion"
	"github.com/poiesic/quadkv/reencode"
	"github.com/poiesic/quadkv/search"
)

// NewReencoder returns a reencoder over this database's backend and codec.
func (db *Database) NewReencoder(cfg *reencode.Config, progress io.Writer) (*reencode.Reencoder, error) {
	return reencode.NewReencoder(db.backend, db.codec, cfg, progress)
}

// NewIngestionPipeline returns a pipeline that imports into this database.
// The caller must Release it.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewPipeline(db, opts...)
}

// NewSearcher returns a searcher over this database's graphs.
// The caller must Release it.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db, opts...)
}
