package services

import (
	"context"
	"errors"
	"fmt"

	"rekrutacje/internal/amqp"
	"rekrutacje/internal/core"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/records"
)

// pager is implemented by stores that can page in the query itself.
type pager interface {
	ListRecordsPage(ctx context.Context, offset, limit int) ([]core.Record, error)
}

// RecordService orchestrates record writes across the store, the dashboard
// cache and the event publisher.
type RecordService struct {
	store  records.Store
	notify *notifier
	logs   *applog.StructuredLogger
}

// NewRecordService builds the service. publisher may be nil.
func NewRecordService(store records.Store, publisher EventPublisher, logger *applog.Logger) *RecordService {
	if logger == nil {
		logger = applog.Wrap(nil)
	}
	logger = logger.WithComponent(applog.ComponentRecords)
	return &RecordService{
		store:  store,
		notify: &notifier{publisher: publisher, logger: logger},
		logs:   applog.NewStructuredLogger(logger),
	}
}

// OnChange registers a hook run after every successful write.
func (s *RecordService) OnChange(fn func()) {
	s.notify.onChange = append(s.notify.onChange, fn)
}

// List returns one page of records in storage order.
func (s *RecordService) List(ctx context.Context, offset, limit int) ([]core.Record, error) {
	if p, ok := s.store.(pager); ok {
		page, err := p.ListRecordsPage(ctx, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		return page, nil
	}

	all, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records.Page(all, offset, limit), nil
}

func (s *RecordService) Get(ctx context.Context, id int64) (core.Record, error) {
	return s.store.GetRecord(ctx, id)
}

// Counts returns the total/open/closed counters over the whole store.
func (s *RecordService) Counts(ctx context.Context) (core.Counts, error) {
	all, err := s.store.ListRecords(ctx)
	if err != nil {
		return core.Counts{}, fmt.Errorf("list records: %w", err)
	}
	return core.BasicCounts(all), nil
}

// Create validates and stores a new record.
func (s *RecordService) Create(ctx context.Context, r core.Record) (core.Record, error) {
	r.ID = 0
	if err := r.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	created, err := s.store.CreateRecord(ctx, r)
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	s.logs.LogRecordChanged(ctx, applog.OpCreate, created.ID, created.ReferenceID, created.Department)
	s.logs.LogRecordWarnings(ctx, created.ReferenceID, created.Warnings())
	s.notify.changed(ctx, amqp.NewRecordChangedMessage(amqp.ActionCreated, created.ID, created.ReferenceID))
	return created, nil
}

// Update applies patch to the stored record with the given id.
func (s *RecordService) Update(ctx context.Context, id int64, patch core.RecordPatch) (core.Record, error) {
	current, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return core.Record{}, err
	}

	next := patch.Apply(current)
	next.ID = id
	if err := next.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if next.ReferenceID != current.ReferenceID {
		other, err := s.store.FindByReference(ctx, next.ReferenceID)
		switch {
		case err == nil && other.ID != id:
			return core.Record{}, fmt.Errorf("update record: %w", records.ErrDuplicateReference)
		case err != nil && !errors.Is(err, records.ErrNotFound):
			return core.Record{}, fmt.Errorf("check reference: %w", err)
		}
	}

	updated, err := s.store.UpdateRecord(ctx, next)
	if err != nil {
		return core.Record{}, fmt.Errorf("update record: %w", err)
	}

	s.logs.LogRecordChanged(ctx, applog.OpUpdate, updated.ID, updated.ReferenceID, updated.Department)
	s.logs.LogRecordWarnings(ctx, updated.ReferenceID, updated.Warnings())
	s.notify.changed(ctx, amqp.NewRecordChangedMessage(amqp.ActionUpdated, updated.ID, updated.ReferenceID))
	return updated, nil
}

func (s *RecordService) Delete(ctx context.Context, id int64) error {
	current, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	s.logs.LogRecordChanged(ctx, applog.OpDelete, id, current.ReferenceID, current.Department)
	s.notify.changed(ctx, amqp.NewRecordChangedMessage(amqp.ActionDeleted, id, current.ReferenceID))
	return nil
}
