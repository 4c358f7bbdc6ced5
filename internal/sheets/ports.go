package sheets

import (
	"context"

	"rekrutacje/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordExporter mirrors the whole record collection to an external
	// spreadsheet, replacing its previous contents.
	RecordExporter interface {
		// ExportRecords returns a reference to the written range.
		ExportRecords(ctx context.Context, records []core.Record) (rangeRef string, err error)
	}

	// RecordReader reads records back from a spreadsheet laid out by a
	// RecordExporter.
	RecordReader interface {
		ReadRecords(ctx context.Context) ([]core.Record, error)
	}
)
