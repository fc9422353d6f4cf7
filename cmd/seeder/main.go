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

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/voc/rdf"

	"github.com/poiesic/quadkv"
	"github.com/poiesic/quadkv/codec"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/graph"
	"github.com/poiesic/quadkv/ingestion"
)

var sentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"A gentle breeze rustled the leaves of the old oak tree.",
	"She found a hidden key in the dusty attic.",
	"The city skyline glowed under the starry night sky.",
	"Rain drummed on the rooftop, creating a soothing rhythm.",
	"A bright comet streaked across the horizon at midnight.",
	"The ancient library held stories that never faded.",
	"Beneath the waves, coral gardens shimmered in colors unseen.",
	"A mysterious map led them to a forgotten treasure.",
	"The old clock chimed thirteen times in an abandoned town.",
	"The desert dunes shifted silently under a pale moon.",
	"A silver fox slipped past the fences into the twilight.",
	"They discovered an ancient rune carved deep within the stone.",
	"He built a wooden bridge across the swift river.",
	"The lighthouse beam cut through fog, guiding sailors safely.",
	"The old map showed roads that no longer existed.",
	"He carried a lantern into the dark forest, illuminating paths.",
	"The abandoned lighthouse still broadcasts its warning every third Tuesday.",
	"Seventeen geese unanimously voted to relocate the pond.",
	"The algorithm dreamed it was a butterfly sorting itself.",
}

const (
	seedNS      = "urn:quadkv:seed:"
	description = quad.IRI("http://purl.org/dc/terms/description")
	sentence    = quad.IRI(seedNS + "Sentence")
)

var (
	seedFileName = flag.String("src", "", "file of seed sentences, one per line")
	dbPath       = flag.String("db", "./quadkv_db", "path to BadgerDB database directory")
	prefix       = flag.String("prefix", "seed", "key prefix for seeded graphs")
	perGraph     = flag.Int("per-graph", 5, "sentences per graph")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// seedSources groups lines into graphs of batchSize sentences each. Every
// sentence becomes a typed resource with a description literal.
func seedSources(cdc *codec.Codec, keyPrefix core.Key, source iter.Seq[string], batchSize int) ([]ingestion.Source, error) {
	var sources []ingestion.Source
	store := graph.NewStore()
	line := 0

	flush := func() error {
		if store.Len() == 0 {
			return nil
		}
		blob, err := cdc.Encode(store, codec.NQuads)
		if err != nil {
			return err
		}
		key := append(append(core.Key{}, keyPrefix...), fmt.Sprintf("%04d", len(sources)))
		sources = append(sources, ingestion.Source{Key: key, Format: blob.Format, Data: blob.Data})
		store = graph.NewStore()
		return nil
	}

	for text := range source {
		if text == "" {
			continue
		}
		subject := quad.IRI(fmt.Sprintf("%s%d", seedNS, line))
		store.Add(quad.Quad{Subject: subject, Predicate: quad.IRI(rdf.Type).Full(), Object: sentence})
		store.Add(quad.Quad{Subject: subject, Predicate: description, Object: quad.String(text)})
		line++
		if line%batchSize == 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return sources, nil
}

func main() {
	flag.Parse()

	db, err := quadkv.Open(*dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ingester, err := db.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer ingester.Release()

	var source iter.Seq[string]
	if *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(sentences)
	}

	sources, err := seedSources(db.Codec(), core.ParseKey(*prefix), source, max(*perGraph, 1))
	if err != nil {
		panic(err)
	}

	for _, r := range ingester.Ingest(context.Background(), sources) {
		if r.Err != nil {
			panic(r.Err)
		}
		slog.Info("seeded graph", "key", r.Commit.Key.String(), "bytes", r.Commit.Size)
	}
}
