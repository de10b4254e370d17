package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// UsageLogRepository persists issued aliases in insertion order.
//
// Records are identified externally by the exact (alias, domain, timestamp) triple; the alias column
// is indexed so [UsageLogRepository.Exists] does not scan the table.
type UsageLogRepository struct {
	db *sql.DB
}

// NewUsageLogRepository creates a new UsageLogRepository with the given database connection
func NewUsageLogRepository(db *sql.DB) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

// Append adds record to the end of the log and sets its ID.
func (r *UsageLogRepository) Append(ctx context.Context, record *models.UsageRecord) error {
	if record.Alias == "" {
		return fmt.Errorf("%w: alias is required", shared.ErrInvalidInput)
	}

	sequence, err := NextSequence(ctx, r.db, "usage_log")
	if err != nil {
		return err
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO usage_log (id, sequence, domain, alias, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, id, sequence, record.Domain, record.Alias, record.Timestamp()); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateRecord, record.Alias)
		}
		return storageErr("failed to insert usage record", err)
	}

	record.ID = id
	return nil
}

// All returns every record in insertion order.
func (r *UsageLogRepository) All(ctx context.Context) ([]models.UsageRecord, error) {
	return r.list(ctx, "")
}

// ListByDomain returns the records issued for exactly domain, in insertion order.
func (r *UsageLogRepository) ListByDomain(ctx context.Context, domain string) ([]models.UsageRecord, error) {
	return r.list(ctx, "WHERE domain = ?", domain)
}

// Search returns the records whose domain contains query, in insertion order.
func (r *UsageLogRepository) Search(ctx context.Context, query string) ([]models.UsageRecord, error) {
	if query == "" {
		return r.All(ctx)
	}
	return r.list(ctx, "WHERE instr(domain, ?) > 0", query)
}

// Exists reports whether alias has been issued before.
func (r *UsageLogRepository) Exists(ctx context.Context, alias string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM usage_log WHERE alias = ?)", alias).Scan(&exists)
	if err != nil {
		return false, storageErr("failed to check alias", err)
	}
	return exists, nil
}

// Count returns the number of records in the log.
func (r *UsageLogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM usage_log").Scan(&n); err != nil {
		return 0, storageErr("failed to count usage records", err)
	}
	return n, nil
}

// Delete removes the record matching the exact (alias, domain, timestamp) triple of record.
// It reports whether a record was removed.
func (r *UsageLogRepository) Delete(ctx context.Context, record models.UsageRecord) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM usage_log WHERE alias = ? AND domain = ? AND created_at = ?",
		record.Alias, record.Domain, record.Timestamp(),
	)
	if err != nil {
		return false, storageErr("failed to delete usage record", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("failed to get affected rows", err)
	}
	return rows > 0, nil
}

// Clear empties the log irreversibly.
func (r *UsageLogRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM usage_log"); err != nil {
		return storageErr("failed to clear usage log", err)
	}
	return nil
}

// Replace swaps the whole log for records in a single transaction, keeping their order.
// Records repeating an earlier triple are skipped; the number stored is returned.
func (r *UsageLogRepository) Replace(ctx context.Context, records []models.UsageRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM usage_log"); err != nil {
		return 0, storageErr("failed to clear usage log", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO usage_log (id, sequence, domain, alias, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, storageErr("failed to prepare insert", err)
	}
	defer stmt.Close()

	stored := 0
	for _, record := range records {
		if record.Alias == "" {
			continue
		}

		sequence, err := nextSequenceTx(ctx, tx, "usage_log")
		if err != nil {
			return 0, err
		}

		result, err := stmt.ExecContext(ctx, shared.GenerateID(), sequence, record.Domain, record.Alias, record.Timestamp())
		if err != nil {
			return 0, storageErr("failed to insert usage record", err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			stored++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("failed to commit usage log", err)
	}
	return stored, nil
}

func (r *UsageLogRepository) list(ctx context.Context, where string, args ...any) ([]models.UsageRecord, error) {
	query := "SELECT id, domain, alias, created_at FROM usage_log " + where + " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("failed to query usage log", err)
	}
	defer rows.Close()

	records := []models.UsageRecord{}
	for rows.Next() {
		record, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("row iteration error", err)
	}
	return records, nil
}

// scanRow scans a row from [sql.Rows] into a [models.UsageRecord]
func (r *UsageLogRepository) scanRow(rows *sql.Rows) (models.UsageRecord, error) {
	var (
		record    models.UsageRecord
		createdAt string
	)
	if err := rows.Scan(&record.ID, &record.Domain, &record.Alias, &createdAt); err != nil {
		return record, storageErr("failed to scan usage record", err)
	}

	t, err := models.ParseTimestamp(createdAt)
	if err != nil {
		return record, storageErr("failed to parse usage record", err)
	}
	record.CreatedAt = t
	return record, nil
}

// Backfill sets missing timestamps to at and missing domains to domain, returning the rows touched.
func (r *UsageLogRepository) Backfill(ctx context.Context, at, domain string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE OR IGNORE usage_log
		SET created_at = CASE WHEN created_at = '' THEN ? ELSE created_at END,
			domain = CASE WHEN domain = '' THEN ? ELSE domain END
		WHERE created_at = '' OR domain = ''
	`, at, domain)
	if err != nil {
		return 0, storageErr("failed to backfill usage log", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("failed to get affected rows", err)
	}
	return int(rows), nil
}
