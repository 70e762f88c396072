package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/types"
)

func testTradeEntry() types.TradeLogEntry {
	return types.TradeLogEntry{
		Timestamp:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Venue:         types.VenueOpinion,
		TokenID:       "op-yes",
		Outcome:       types.OutcomeYes,
		Side:          types.SideBuy,
		OrderQty:      100,
		LimitPrice:    0.55,
		FilledQty:     98,
		AvgFillPrice:  0.552,
		Fee:           1.2,
		OpportunityID: "opp-1",
	}
}

func TestConsoleStorage_WriteTrade(t *testing.T) {
	logger := zap.NewNop()
	s := NewConsoleStorage(logger)

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := s.WriteTrade(context.Background(), testTradeEntry())

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	output := buf.String()

	require.NoError(t, err)
	assert.Contains(t, output, "TRADE")
	assert.Contains(t, output, "opp-1")
}

func TestConsoleStorage_Close(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())
	assert.NoError(t, s.Close())
}

func TestJSONLStorage_WriteTradeAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	s, err := NewJSONLStorage(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.WriteTrade(context.Background(), testTradeEntry()))
	require.NoError(t, s.WriteTrade(context.Background(), testTradeEntry()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"opportunity_id":"opp-1"`)
}

func TestJSONLStorage_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")

	s1, err := NewJSONLStorage(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s1.WriteTrade(context.Background(), testTradeEntry()))
	require.NoError(t, s1.Close())

	s2, err := NewJSONLStorage(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s2.WriteTrade(context.Background(), testTradeEntry()))
	require.NoError(t, s2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	assert.Len(t, lines, 2)
}

func TestPostgresStorage_WriteTrade(t *testing.T) {
	logger := zap.NewNop()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &PostgresStorage{db: db, logger: logger}
	entry := testTradeEntry()

	mock.ExpectExec("INSERT INTO trade_log").
		WithArgs(
			entry.Timestamp,
			string(entry.Venue),
			entry.TokenID,
			string(entry.Outcome),
			string(entry.Side),
			entry.OrderQty,
			entry.LimitPrice,
			entry.FilledQty,
			entry.AvgFillPrice,
			entry.Fee,
			entry.OpportunityID,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.WriteTrade(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_WriteTrade_Error(t *testing.T) {
	logger := zap.NewNop()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &PostgresStorage{db: db, logger: logger}
	entry := testTradeEntry()

	mock.ExpectExec("INSERT INTO trade_log").WillReturnError(sqlmock.ErrCancelled)

	err = s.WriteTrade(context.Background(), entry)
	assert.Error(t, err)
}

func TestPostgresStorage_Close(t *testing.T) {
	logger := zap.NewNop()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	s := &PostgresStorage{db: db, logger: logger}
	mock.ExpectClose()

	require.NoError(t, s.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_InterfaceSatisfaction(t *testing.T) {
	logger := zap.NewNop()

	var _ Storage = NewConsoleStorage(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()
	var _ Storage = &PostgresStorage{db: db, logger: logger}

	jsonl, err := NewJSONLStorage(filepath.Join(t.TempDir(), "t.jsonl"), logger)
	require.NoError(t, err)
	var _ Storage = jsonl
	require.NoError(t, jsonl.Close())
}
