package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/metar-reader/internal/metar"
	"github.com/yegors/metar-reader/internal/storage/sqlite"
	"github.com/yegors/metar-reader/pkg/logger"
)

func TestPruneHistory_PrunesThenStopsOnCancel(t *testing.T) {
	storage, err := sqlite.NewReportStorage(filepath.Join(t.TempDir(), "metar.db"), logger.NewNop())
	require.NoError(t, err)
	defer storage.Close()

	raw := "KJFK 161251Z 28008KT 10SM CLR 22/13 A3012"
	report, err := metar.Decode(raw)
	require.NoError(t, err)
	_, err = storage.StoreReport(&sqlite.ReportRecord{
		AirportCode: "KJFK",
		RawText:     raw,
		Decoded:     report,
		FetchedAt:   time.Now().Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pruneHistory(ctx, storage, 24*time.Hour, logger.NewNop())
	}()

	require.Eventually(t, func() bool {
		latest, err := storage.GetLatest("KJFK")
		return err == nil && latest == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pruneHistory did not return after cancel")
	}
	// the loop has exited, so closing storage cannot race a prune
	records, err := storage.GetHistory("KJFK", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
