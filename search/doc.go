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

// Package search runs read-only lookups across many stored graphs.
//
// The Searcher type offers two kinds of lookup over every graph under a
// key prefix:
//   - Select evaluates one SPARQL SELECT query against each graph
//   - FindLiterals ranks literal objects by how well they match free text
//
// Graphs are loaded concurrently on a worker pool and are never written
// back, so a search does not refresh expiry times. A graph that fails to
// load is reported to the monitor and skipped.
package search
