package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/concord/internal/txlog"
)

func TestResolveCommand_Text(t *testing.T) {
	path := writeBatchFile(t, validBatchJSON)

	out, _, err := executeCommand(t, "resolve", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Resolved 2 operation(s): 1 conflict(s), 1 surviving")
	assert.Contains(t, out, "update_update first=op-1 second=op-2 resolution=merge")
	assert.Contains(t, out, "Surviving: op-1")
}

func TestResolveCommand_JSON(t *testing.T) {
	path := writeBatchFile(t, validBatchJSON)

	out, _, err := executeCommand(t, "--format", "json", "resolve", path)
	require.NoError(t, err)

	var response struct {
		Status string        `json:"status"`
		Data   ResolveReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 2, response.Data.Operations)
	require.Len(t, response.Data.Conflicts, 1)
	assert.Equal(t, "op-1", response.Data.Conflicts[0].First)
	assert.Equal(t, "op-2", response.Data.Conflicts[0].Second)
	assert.Equal(t, "update_update", response.Data.Conflicts[0].Type)
	assert.Equal(t, "merge", response.Data.Conflicts[0].Resolution)

	require.Len(t, response.Data.Surviving, 1)
	merged := response.Data.Surviving[0]
	assert.Equal(t, "op-1", merged.ID)
	assert.Equal(t, int64(1), merged.Clock.Get("d1"))
	assert.Equal(t, int64(1), merged.Clock.Get("d2"))
	assert.Equal(t, 2, merged.Payload.FieldCount())
}

func TestResolveCommand_NoConflicts(t *testing.T) {
	path := writeBatchFile(t, `{
  "operations": [
    {
      "id": "op-1",
      "entity_type": "course",
      "entity_id": "101",
      "operation_type": "update",
      "timestamp": "2024-01-01T00:00:05Z",
      "vector_clock": {"d1": 1}
    },
    {
      "id": "op-2",
      "entity_type": "student",
      "entity_id": "7",
      "operation_type": "update",
      "timestamp": "2024-01-01T00:00:05Z",
      "vector_clock": {"d2": 1}
    }
  ]
}`)

	out, _, err := executeCommand(t, "resolve", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Resolved 2 operation(s): 0 conflict(s), 2 surviving")
}

func TestResolveCommand_InvalidBatch(t *testing.T) {
	path := writeBatchFile(t, `{"operations": "nope"}`)

	out, _, err := executeCommand(t, "resolve", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Batch invalid")
}

func TestResolveCommand_Audit(t *testing.T) {
	path := writeBatchFile(t, validBatchJSON)
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	out, _, err := executeCommand(t, "resolve", path, "--audit", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit transaction: ")

	store, err := txlog.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	txns, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)

	txn := txns[0]
	assert.Equal(t, txlog.StatusCompleted, txn.Status)
	assert.Equal(t, "sync_batch", txn.EntityType)
	assert.Equal(t, "batch.json", txn.EntityID)
	assert.Equal(t, "resolve", txn.Operation)
	assert.Equal(t, "cli", txn.SourceSystem)

	require.Len(t, txn.Steps, 1)
	assert.Equal(t, "conflict resolved", txn.Steps[0].Description)
}
