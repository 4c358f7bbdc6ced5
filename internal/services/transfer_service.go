package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"rekrutacje/internal/amqp"
	"rekrutacje/internal/core"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/records"
)

// ExportDocument is the JSON backup format.
type ExportDocument struct {
	Records    []core.Record `json:"records"`
	ExportedAt time.Time     `json:"exported_at"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// DecodeImport splits either an export document or a bare JSON array into
// its items. Items are decoded one by one in ImportRaw so a single bad
// record does not sink the rest.
func DecodeImport(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty import document", ErrInvalidRecord)
	}

	if data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: decode records: %w", ErrInvalidRecord, err)
		}
		return list, nil
	}

	var doc struct {
		Records *[]json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode import document: %w", ErrInvalidRecord, err)
	}
	if doc.Records == nil {
		return nil, fmt.Errorf("%w: import document has no records field", ErrInvalidRecord)
	}
	return *doc.Records, nil
}

// EncodeImport turns records into import items, the inverse of decoding a
// bare array.
func EncodeImport(recs []core.Record) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0, len(recs))
	for _, r := range recs {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.ReferenceID, err)
		}
		items = append(items, raw)
	}
	return items, nil
}

// importItem is one entry of an import run; err is set when the entry could
// not be decoded.
type importItem struct {
	record core.Record
	err    error
}

// TransferService moves whole collections in and out of the store.
type TransferService struct {
	store  records.Store
	notify *notifier
	logger *applog.Logger
	now    func() time.Time
}

func NewTransferService(store records.Store, publisher EventPublisher, logger *applog.Logger) *TransferService {
	if logger == nil {
		logger = applog.Wrap(nil)
	}
	logger = logger.WithComponent(applog.ComponentTransfer)
	return &TransferService{
		store:  store,
		notify: &notifier{publisher: publisher, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// OnChange registers a hook run after an import that stored at least one record.
func (s *TransferService) OnChange(fn func()) {
	s.notify.onChange = append(s.notify.onChange, fn)
}

func (s *TransferService) Export(ctx context.Context) (ExportDocument, error) {
	all, err := s.store.ListRecords(ctx)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("export records: %w", err)
	}
	if all == nil {
		all = []core.Record{}
	}
	s.logger.InfoContext(ctx, "Records exported", applog.FieldRecordCount, len(all))
	return ExportDocument{Records: all, ExportedAt: s.now().UTC()}, nil
}

// Import stores every record whose reference id is not present yet.
// Invalid items are reported in the result and do not stop the run.
func (s *TransferService) Import(ctx context.Context, recs []core.Record) (ImportResult, error) {
	items := make([]importItem, len(recs))
	for i, r := range recs {
		items[i] = importItem{record: r}
	}
	return s.run(ctx, items)
}

// ImportRaw decodes each item separately; items that fail to decode are
// reported in the result alongside validation failures.
func (s *TransferService) ImportRaw(ctx context.Context, raw []json.RawMessage) (ImportResult, error) {
	items := make([]importItem, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &items[i].record); err != nil {
			// Keep whatever identifies the item for the error line.
			var ref struct {
				ReferenceID string `json:"reference_id"`
			}
			_ = json.Unmarshal(msg, &ref)
			items[i] = importItem{record: core.Record{ReferenceID: ref.ReferenceID}, err: err}
		}
	}
	return s.run(ctx, items)
}

func (s *TransferService) run(ctx context.Context, items []importItem) (ImportResult, error) {
	result := ImportResult{Errors: []string{}}
	fail := func(i int, ref string, err error) {
		result.Errors = append(result.Errors, fmt.Sprintf("record %d (%s): %v", i, ref, err))
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		r := item.record
		if item.err != nil {
			fail(i, r.ReferenceID, item.err)
			continue
		}

		r.ID = 0
		if err := r.Validate(); err != nil {
			fail(i, r.ReferenceID, err)
			continue
		}

		_, err := s.store.FindByReference(ctx, r.ReferenceID)
		switch {
		case err == nil:
			result.Skipped++
			continue
		case !errors.Is(err, records.ErrNotFound):
			fail(i, r.ReferenceID, err)
			continue
		}

		if _, err := s.store.CreateRecord(ctx, r); err != nil {
			if errors.Is(err, records.ErrDuplicateReference) {
				result.Skipped++
				continue
			}
			fail(i, r.ReferenceID, err)
			continue
		}
		result.Imported++
	}

	s.logger.InfoContext(ctx, "Import finished",
		applog.FieldOperation, applog.OpImport,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors))

	if result.Imported > 0 {
		msg := amqp.NewRecordChangedMessage(amqp.ActionImported, 0, "")
		msg.Count = result.Imported
		s.notify.changed(ctx, msg)
	}
	return result, nil
}
