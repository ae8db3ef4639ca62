package txlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const transactionColumns = `transaction_id, entity_type, entity_id, operation,
	source_system, target_system, start_time, end_time, status,
	duration_ms, error_message, event_data`

// Get returns one transaction with its steps ordered by timestamp.
// Always reads from storage, never from handler memory: the queried
// transaction may belong to another session.
func (s *Store) Get(ctx context.Context, id string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM sync_transactions
		WHERE transaction_id = ?
	`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newNotFoundError(id)
		}
		return nil, newStorageError(id, "get transaction", err)
	}

	if err := s.loadSteps(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// ListRecent returns the limit most recently started transactions,
// newest first. Steps are loaded for each transaction.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Transaction, error) {
	return s.list(ctx, `
		SELECT `+transactionColumns+`
		FROM sync_transactions
		ORDER BY start_time DESC, transaction_id ASC
		LIMIT ?
	`, limit)
}

// ListForEntity returns the audit trail for one entity, newest first.
// An empty entityID matches rows with no stored entity id.
func (s *Store) ListForEntity(ctx context.Context, entityType, entityID string, limit int) ([]*Transaction, error) {
	if entityID == "" {
		return s.list(ctx, `
			SELECT `+transactionColumns+`
			FROM sync_transactions
			WHERE entity_type = ? AND entity_id IS NULL
			ORDER BY start_time DESC, transaction_id ASC
			LIMIT ?
		`, entityType, limit)
	}
	return s.list(ctx, `
		SELECT `+transactionColumns+`
		FROM sync_transactions
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY start_time DESC, transaction_id ASC
		LIMIT ?
	`, entityType, entityID, limit)
}

// ListFailedSince returns failed and rolled back transactions started at
// or after since, newest first.
func (s *Store) ListFailedSince(ctx context.Context, since time.Time, limit int) ([]*Transaction, error) {
	return s.list(ctx, `
		SELECT `+transactionColumns+`
		FROM sync_transactions
		WHERE status IN (?, ?) AND start_time >= ?
		ORDER BY start_time DESC, transaction_id ASC
		LIMIT ?
	`, string(StatusFailed), string(StatusRolledBack), formatTime(since), limit)
}

// list runs a transaction query and loads steps for every row.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newStorageError("", "list transactions", err)
	}
	defer rows.Close()

	txns := []*Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, newStorageError("", "scan transaction", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("", "iterate transactions", err)
	}

	for _, txn := range txns {
		if err := s.loadSteps(ctx, txn); err != nil {
			return nil, err
		}
	}

	return txns, nil
}

// loadSteps fills in a transaction's steps, ordered by timestamp with the
// autoincrement id as a deterministic tie-break.
func (s *Store) loadSteps(ctx context.Context, txn *Transaction) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, description, step_data
		FROM sync_transaction_steps
		WHERE transaction_id = ?
		ORDER BY timestamp ASC, id ASC
	`, txn.ID)
	if err != nil {
		return newStorageError(txn.ID, "query steps", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		var (
			ts       string
			desc     string
			stepData sql.NullString
		)
		if err := rows.Scan(&ts, &desc, &stepData); err != nil {
			return newStorageError(txn.ID, "scan step", err)
		}

		at, err := parseTime(ts)
		if err != nil {
			return newStorageError(txn.ID, "parse step timestamp", err)
		}
		data, err := unmarshalData(stepData)
		if err != nil {
			return newStorageError(txn.ID, "decode step data", err)
		}

		steps = append(steps, Step{Description: desc, Data: data, At: at})
	}
	if err := rows.Err(); err != nil {
		return newStorageError(txn.ID, "iterate steps", err)
	}

	txn.Steps = steps
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTransaction scans one sync_transactions row.
func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		txn        Transaction
		entityID   sql.NullString
		startTime  string
		endTime    sql.NullString
		status     string
		durationMS sql.NullInt64
		errMsg     sql.NullString
		eventData  sql.NullString
	)

	if err := row.Scan(
		&txn.ID, &txn.EntityType, &entityID, &txn.Operation,
		&txn.SourceSystem, &txn.TargetSystem, &startTime, &endTime,
		&status, &durationMS, &errMsg, &eventData,
	); err != nil {
		return nil, err
	}

	txn.EntityID = entityID.String
	txn.ErrorMessage = errMsg.String
	txn.DurationMS = durationMS.Int64

	parsedStatus, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	txn.Status = parsedStatus

	txn.StartTime, err = parseTime(startTime)
	if err != nil {
		return nil, fmt.Errorf("parse start_time: %w", err)
	}
	if endTime.Valid {
		txn.EndTime, err = parseTime(endTime.String)
		if err != nil {
			return nil, fmt.Errorf("parse end_time: %w", err)
		}
	}

	txn.EventData, err = unmarshalData(eventData)
	if err != nil {
		return nil, err
	}

	return &txn, nil
}
