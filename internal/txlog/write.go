package txlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/concord/internal/payload"
)

// marshalData converts an optional payload object to canonical JSON TEXT
// for storage. A nil object stores as SQL NULL.
func marshalData(obj payload.Object) (sql.NullString, error) {
	if obj == nil {
		return sql.NullString{}, nil
	}
	data, err := payload.Encode(obj)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal data: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalData parses stored JSON TEXT back into a payload object.
// NULL and empty text read as a nil object.
func unmarshalData(data sql.NullString) (payload.Object, error) {
	if !data.Valid || data.String == "" {
		return nil, nil
	}
	obj, err := payload.DecodeObject([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return obj, nil
}

// insertTransaction writes the initial transaction row.
func (s *Store) insertTransaction(ctx context.Context, id string, event Event, startTime time.Time, status Status) error {
	eventData, err := marshalData(event.Data)
	if err != nil {
		return newStorageError(id, "insert transaction", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_transactions
		(transaction_id, entity_type, entity_id, operation, source_system, target_system, start_time, status, event_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		event.EntityType,
		nullable(event.EntityID),
		event.Operation,
		event.SourceSystem,
		event.TargetSystem,
		formatTime(startTime),
		string(status),
		eventData,
	)
	if err != nil {
		return newStorageError(id, "insert transaction", err)
	}

	return nil
}

// insertStep appends one step row to a transaction.
func (s *Store) insertStep(ctx context.Context, txID string, step Step) error {
	stepData, err := marshalData(step.Data)
	if err != nil {
		return newStorageError(txID, "insert step", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_transaction_steps
		(transaction_id, timestamp, description, step_data)
		VALUES (?, ?, ?, ?)
	`,
		txID,
		formatTime(step.At),
		step.Description,
		stepData,
	)
	if err != nil {
		return newStorageError(txID, "insert step", err)
	}

	return nil
}

// finalizeTransaction stamps the terminal status, end time, and duration
// on a transaction row. errMsg is stored for failed and rolled back
// transactions; pass "" for a commit.
func (s *Store) finalizeTransaction(ctx context.Context, txID string, status Status, endTime time.Time, durationMS int64, errMsg string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_transactions
		SET status = ?, end_time = ?, duration_ms = ?, error_message = ?
		WHERE transaction_id = ?
	`,
		string(status),
		formatTime(endTime),
		durationMS,
		nullable(errMsg),
		txID,
	)
	if err != nil {
		return newStorageError(txID, "finalize transaction", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return newStorageError(txID, "finalize transaction: rows affected", err)
	}
	if rows == 0 {
		return newStorageError(txID, "finalize transaction", fmt.Errorf("no stored row"))
	}

	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
