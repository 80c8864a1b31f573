package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBolt(t *testing.T) *BoltJournal {
	t.Helper()
	j, err := OpenBolt(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestBoltJournalHistory(t *testing.T) {
	ctx := context.Background()
	j := openTestBolt(t)

	require.NoError(t, j.Record(ctx, Snapshot{Kind: "card", ID: "s-crd-1", Method: "POST", Body: []byte(`{"id":"s-crd-1"}`)}))
	require.NoError(t, j.Record(ctx, Snapshot{Kind: "charge", ID: "s-chg-1", PaymentID: "s-pay-1", Method: "POST", Body: []byte(`{"id":"s-chg-1"}`)}))
	require.NoError(t, j.Record(ctx, Snapshot{Kind: "payment", ID: "s-pay-1", Method: "GET", Body: []byte(`{"id":"s-pay-1"}`)}))
	require.NoError(t, j.Record(ctx, Snapshot{Kind: "charge", ID: "s-chg-2", PaymentID: "s-pay-2", Method: "POST"}))

	all, err := j.All()
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "s-crd-1", all[0].ID)
	assert.False(t, all[0].RecordedAt.IsZero())

	hist, err := j.History(ctx, "s-pay-1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "charge", hist[0].Kind)
	assert.Equal(t, "payment", hist[1].Kind)
	assert.JSONEq(t, `{"id":"s-pay-1"}`, string(hist[1].Body))

	_, err = j.History(ctx, "s-pay-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltJournalReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), Snapshot{Kind: "customer", ID: "s-cst-1", Method: "POST"}))
	require.NoError(t, j.Close())

	j, err = OpenBolt(path)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.Record(context.Background(), Snapshot{Kind: "customer", ID: "s-cst-1", Method: "PUT"}))

	all, err := j.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "POST", all[0].Method)
	assert.Equal(t, "PUT", all[1].Method)
}

func TestSnapshotRowMatchesColumns(t *testing.T) {
	assert.Len(t, Snapshot{}.Row(), len(Columns))
}

func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv("DB_SOURCE")
	if dsn == "" {
		t.Skip("DB_SOURCE not set")
	}
	ctx := context.Background()
	j, err := NewPostgresJournal(dsn)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.EnsureSchema(ctx))

	pid := "s-pay-test-" + t.Name()
	require.NoError(t, j.Record(ctx, Snapshot{Kind: "charge", ID: "s-chg-1", PaymentID: pid, Method: "POST", Body: []byte(`{"id":"s-chg-1"}`)}))
	require.NoError(t, j.Record(ctx, Snapshot{Kind: "payment", ID: pid, Method: "GET", Body: []byte(`{"id":"x"}`)}))

	hist, err := j.History(ctx, pid)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(hist), 2)
	assert.Equal(t, "charge", hist[0].Kind)
}
