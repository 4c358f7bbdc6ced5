package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rekrutacje/internal/core"
	"rekrutacje/internal/records"

	_ "modernc.org/sqlite"
)

var _ records.Store = (*SQLiteRepository)(nil)

const recordColumns = `id, reference_id, department, division, position, location, hiring_manager,
	collar_type, is_manager, reason, replacement_for, employment_type, gender, comment,
	opened_date, closed_date, hired_date,
	cv_received, cv_rejected_by_recruiter, recruiter_meetings, hiring_manager_meetings,
	offers_extended, offers_rejected_by_candidate, hired_count`

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// modernc sqlite takes pragmas in the DSN
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements records.Pinger
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.Record, error) {
	var (
		rec                                           core.Record
		collar                                        string
		replacementFor, employmentType, gender, notes sql.NullString
		opened                                        string
		closed, hired                                 sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.ReferenceID, &rec.Department, &rec.Division, &rec.Position, &rec.Location, &rec.HiringManager,
		&collar, &rec.IsManager, &rec.Reason, &replacementFor, &employmentType, &gender, &notes,
		&opened, &closed, &hired,
		&rec.CVReceived, &rec.CVRejectedByRecruiter, &rec.RecruiterMeetings, &rec.HiringManagerMeetings,
		&rec.OffersExtended, &rec.OffersRejectedByCandidate, &rec.HiredCount,
	)
	if err != nil {
		return core.Record{}, err
	}
	rec.CollarType = core.CollarType(collar)
	rec.ReplacementFor = replacementFor.String
	rec.EmploymentType = employmentType.String
	rec.Gender = gender.String
	rec.Comment = notes.String

	if rec.OpenedDate, err = core.ParseDate(opened); err != nil {
		return core.Record{}, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	if rec.ClosedDate, err = core.ParseDate(closed.String); err != nil {
		return core.Record{}, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	if rec.HiredDate, err = core.ParseDate(hired.String); err != nil {
		return core.Record{}, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d core.Date) sql.NullString {
	return nullString(d.String())
}

func recordArgs(rec core.Record) []any {
	return []any{
		rec.ReferenceID, rec.Department, rec.Division, rec.Position, rec.Location, rec.HiringManager,
		string(rec.CollarType), rec.IsManager, rec.Reason,
		nullString(rec.ReplacementFor), nullString(rec.EmploymentType), nullString(rec.Gender), nullString(rec.Comment),
		rec.OpenedDate.String(), nullDate(rec.ClosedDate), nullDate(rec.HiredDate),
		rec.CVReceived, rec.CVRejectedByRecruiter, rec.RecruiterMeetings, rec.HiringManagerMeetings,
		rec.OffersExtended, rec.OffersRejectedByCandidate, rec.HiredCount,
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListRecords implements records.Source
func (r *SQLiteRepository) ListRecords(ctx context.Context) ([]core.Record, error) {
	out, err := r.queryRecords(ctx, `SELECT `+recordColumns+` FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

// ListRecordsPage returns up to limit records after skipping offset.
func (r *SQLiteRepository) ListRecordsPage(ctx context.Context, offset, limit int) ([]core.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	out, err := r.queryRecords(ctx, `SELECT `+recordColumns+` FROM records ORDER BY id LIMIT ? OFFSET ?`, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list records page (offset=%d, limit=%d): %w", offset, limit, err)
	}
	return out, nil
}

// QueryRecords pushes the filter into SQL. Dates are stored as ISO text, so
// the comparison is lexical like core.Filter.
func (r *SQLiteRepository) QueryRecords(ctx context.Context, c core.FilterCriteria) ([]core.Record, error) {
	var (
		where []string
		args  []any
	)
	if c.DateFrom != "" {
		where = append(where, "opened_date >= ?")
		args = append(args, c.DateFrom)
	}
	if c.DateTo != "" {
		where = append(where, "opened_date <= ?")
		args = append(args, c.DateTo)
	}
	if c.Department != "" {
		where = append(where, "department = ?")
		args = append(args, c.Department)
	}
	if c.CollarType != "" {
		where = append(where, "collar_type = ?")
		args = append(args, c.CollarType)
	}
	query := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	out, err := r.queryRecords(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id int64) (core.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, records.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) FindByReference(ctx context.Context, referenceID string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE reference_id = ?`, referenceID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, records.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("find record %q: %w", referenceID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO records (
		reference_id, department, division, position, location, hiring_manager,
		collar_type, is_manager, reason, replacement_for, employment_type, gender, comment,
		opened_date, closed_date, hired_date,
		cv_received, cv_rejected_by_recruiter, recruiter_meetings, hiring_manager_meetings,
		offers_extended, offers_rejected_by_candidate, hired_count
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, recordArgs(rec)...)
	if isUniqueViolation(err) {
		return core.Record{}, records.ErrDuplicateReference
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Record{}, fmt.Errorf("read inserted id: %w", err)
	}
	rec.ID = id

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", rec.ID,
		"reference_id", rec.ReferenceID,
		"department", rec.Department)
	return rec, nil
}

func (r *SQLiteRepository) UpdateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	args := append(recordArgs(rec), rec.ID)
	res, err := r.db.ExecContext(ctx, `UPDATE records SET
		reference_id = ?, department = ?, division = ?, position = ?, location = ?, hiring_manager = ?,
		collar_type = ?, is_manager = ?, reason = ?, replacement_for = ?, employment_type = ?, gender = ?, comment = ?,
		opened_date = ?, closed_date = ?, hired_date = ?,
		cv_received = ?, cv_rejected_by_recruiter = ?, recruiter_meetings = ?, hiring_manager_meetings = ?,
		offers_extended = ?, offers_rejected_by_candidate = ?, hired_count = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, args...)
	if isUniqueViolation(err) {
		return core.Record{}, records.ErrDuplicateReference
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("update record %d: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Record{}, records.ErrNotFound
	}
	return rec, nil
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return records.ErrNotFound
	}
	return nil
}

// SyncState describes the last mirror of the collection to an external sheet.
type SyncState struct {
	Name         string
	LastSyncedAt time.Time
	LastError    string
	RecordCount  int
}

// MarkSynced stores a successful mirror of count records.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, name string, count int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sync_state (name, last_synced_at, last_error, record_count)
		VALUES (?, ?, NULL, ?)
		ON CONFLICT(name) DO UPDATE SET last_synced_at = excluded.last_synced_at, last_error = NULL, record_count = excluded.record_count`,
		name, time.Now().UTC().Format(time.RFC3339), count)
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", name, err)
	}
	return nil
}

// MarkSyncError stores the error of a failed mirror attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, name string, syncErr error) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sync_state (name, last_error) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET last_error = excluded.last_error`,
		name, syncErr.Error())
	if err != nil {
		return fmt.Errorf("mark %s sync error: %w", name, err)
	}
	return nil
}

// GetSyncState returns the stored state for name, or a zero state.
func (r *SQLiteRepository) GetSyncState(ctx context.Context, name string) (SyncState, error) {
	var (
		state     = SyncState{Name: name}
		syncedAt  sql.NullString
		lastError sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT last_synced_at, last_error, record_count FROM sync_state WHERE name = ?`, name).
		Scan(&syncedAt, &lastError, &state.RecordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("get sync state %s: %w", name, err)
	}
	state.LastError = lastError.String
	if syncedAt.Valid {
		if t, err := time.Parse(time.RFC3339, syncedAt.String); err == nil {
			state.LastSyncedAt = t
		}
	}
	return state, nil
}
