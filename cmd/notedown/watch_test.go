package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/notedown/internal/events"
	"git.home.luguber.info/inful/notedown/internal/metrics"
	"git.home.luguber.info/inful/notedown/internal/state"
)

func TestWatcherEncodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nhello"), 0o644))

	store, err := state.NewStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	defer store.Close()

	reg := prom.NewRegistry()
	w, err := newWatcher(dir, store, events.NewNoopPublisher(), metrics.NewPrometheusRecorder(reg))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.encodeFile(context.Background(), path))

	doc, err := store.GetDocument(context.Background(), "draft")
	require.NoError(t, err)
	assert.Contains(t, doc.Encoded, ">Title</h1>")

	// the encode duration lands in the registry the scrape endpoint serves
	mfs, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "notedown_encode_duration_seconds")
}
