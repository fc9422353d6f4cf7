package ingestion

import "errors"

var (
	// ErrImporterRequired is returned when an importer is not provided.
	ErrImporterRequired = errors.New("importer required")

	// ErrNoData is returned for a source with neither data nor a path.
	ErrNoData = errors.New("source has no data")

	// ErrUnknownExtension is returned when a file's format cannot be
	// inferred from its extension.
	ErrUnknownExtension = errors.New("unknown file extension")
)
