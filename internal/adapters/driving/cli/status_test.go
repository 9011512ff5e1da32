package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quasar/internal/core/domain"
)

func TestStatusCmd_Current(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})

	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Datasets: 1")
	assert.Contains(t, out, "Records:  2")
	assert.Contains(t, out, "Latest period: 2024-03")
	assert.Contains(t, out, "Documents: 2")
	assert.Contains(t, out, "Embedding model: hashing-v1")
	assert.Contains(t, out, "Indexed with: hashing-v1 (256 dims)")
	assert.Contains(t, out, "State: current")
}

func TestStatusCmd_Stale(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()
	ts.index.status = &domain.IndexStatus{
		Documents:          5,
		IndexedFingerprint: "old",
		LiveFingerprint:    "new",
		Stale:              true,
		SnapshotLoaded:     true,
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "State: stale (run 'quasar reindex')")
}

func TestStatusCmd_WithoutDataset(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()
	ts.snapshots.reloadErr = domain.ErrDatasetUnavailable

	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs([]string{"status"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, errOut.String(), "Warning:")
	assert.Contains(t, out.String(), "(not loaded)")
	assert.Contains(t, out.String(), "State: unknown")
}

func TestStatusCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "--json"})

	require.NoError(t, rootCmd.Execute())

	var out statusOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 1, out.Datasets)
	assert.Equal(t, 2, out.Records)
	assert.Equal(t, 2, out.Documents)
	assert.True(t, out.SnapshotLoaded)
	assert.False(t, out.Stale)
	assert.Equal(t, "2024-03", out.LatestPeriod)
}

func TestStatusCmd_IndexError(t *testing.T) {
	ts, cleanup := setupTestServicesWith()
	defer cleanup()
	ts.index.err = errors.New("db locked")

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"status"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index status: db locked")
}
