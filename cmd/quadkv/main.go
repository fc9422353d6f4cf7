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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/quadkv/codec"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "quadkv",
		Usage: "Run SPARQL against RDF graphs stored in a key-value store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.StringFlag{
				Name:  "default-format",
				Usage: "Format for graphs that do not name one",
				Value: codec.DefaultFormat,
			},
			&cli.IntFlag{
				Name:  "pool-size",
				Usage: "Worker pool size for batch operations (0 uses the CPU count)",
			},
		},
		Before: before,
		Commands: []*cli.Command{
			{
				Name:      "query",
				Usage:     "Run a SPARQL query or update against one graph",
				ArgsUsage: "[sparql]",
				Action:    queryCommand,
				Flags: append([]cli.Flag{
					keyFlag(),
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "SPARQL text (defaults to the arguments)",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Read SPARQL text from a file",
					},
					&cli.StringFlag{
						Name:  "output-format",
						Usage: "Serialization for CONSTRUCT and DESCRIBE results",
						Value: codec.NQuads,
					},
					&cli.BoolFlag{
						Name:  "skip-read-only-write",
						Usage: "Do not write the graph back after a read-only query",
					},
				}, cycleFlags()...),
			},
			{
				Name:   "import",
				Usage:  "Store a serialized graph file, or every graph file under a directory",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Usage: "Slash-separated key to store a single file under",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Graph file to import",
					},
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory of graph files to import",
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Key prefix for graphs imported from --dir",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Format of --file (defaults to its extension)",
					},
					&cli.StringFlag{
						Name:  "store-format",
						Usage: "Format to store graphs in (defaults to the input format)",
					},
					&cli.DurationFlag{
						Name:  "expire-in",
						Usage: "Time to live for stored graphs",
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write a stored graph to stdout or a file",
				Action: exportCommand,
				Flags: []cli.Flag{
					keyFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format (defaults to the stored format)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (defaults to stdout)",
					},
					&cli.StringFlag{
						Name:  "consistency",
						Usage: "Read consistency (strong, eventual)",
						Value: "strong",
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a stored graph",
				Action: deleteCommand,
				Flags:  []cli.Flag{keyFlag()},
			},
			{
				Name:   "keys",
				Usage:  "List stored keys",
				Action: keysCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only list keys under this prefix",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the SPARQL and graph HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Address to listen on",
						Value: ":8080",
					},
					&cli.StringSliceFlag{
						Name:  "cors-origin",
						Usage: "Allowed CORS origin (repeatable)",
					},
				},
			},
			{
				Name:   "reencode",
				Usage:  "Rewrite stored graphs in another format",
				Action: reencodeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Target format (defaults to the default format)",
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only rewrite graphs under this prefix",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of graphs to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N graphs",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for each backend operation",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search every graph under a prefix",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only search graphs under this prefix",
					},
					&cli.StringFlag{
						Name:  "select",
						Usage: "SPARQL SELECT query to run against each graph",
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "Free text to match against literals",
					},
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of hits (0 for all)",
						Value: 10,
					},
				},
			},
		},
	}
}

func keyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "key",
		Aliases:  []string{"k"},
		Usage:    "Slash-separated graph key",
		Required: true,
	}
}

func cycleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "Format to read and write the graph in",
		},
		&cli.DurationFlag{
			Name:  "expire-in",
			Usage: "Time to live for the written graph",
		},
		&cli.StringFlag{
			Name:  "consistency",
			Usage: "Read consistency (strong, eventual)",
			Value: "strong",
		},
	}
}

func before(c *cli.Context) error {
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}
	c.App.Metadata[configKey] = cfg
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(stringSetting(c, "log-level", configFrom(c).LogLevel))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
