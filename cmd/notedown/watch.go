package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/notedown/internal/config"
	"git.home.luguber.info/inful/notedown/internal/document"
	"git.home.luguber.info/inful/notedown/internal/events"
	"git.home.luguber.info/inful/notedown/internal/markup"
	"git.home.luguber.info/inful/notedown/internal/metrics"
	"git.home.luguber.info/inful/notedown/internal/observability"
	"git.home.luguber.info/inful/notedown/internal/state"
)

// watchDebounce coalesces editor save bursts into one encode.
const watchDebounce = 500 * time.Millisecond

func runWatch(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := state.NewStore(cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	reg := prom.NewRegistry()
	w, err := newWatcher(CLI.Watch.Dir, store, publisher, metrics.NewPrometheusRecorder(reg))
	if err != nil {
		return err
	}
	defer w.Close()

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
		defer srv.Close()
		slog.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	slog.Info("watching for Markdown changes", "dir", CLI.Watch.Dir)
	w.run(ctx)
	slog.Info("watcher stopped")
	return nil
}

type watcher struct {
	fs        *fsnotify.Watcher
	store     *state.Store
	publisher events.Publisher
	recorder  metrics.Recorder

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newWatcher(dir string, store *state.Store, publisher events.Publisher, recorder metrics.Recorder) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &watcher{
		fs:        fs,
		store:     store,
		publisher: publisher,
		recorder:  recorder,
		timers:    make(map[string]*time.Timer),
	}, nil
}

func (w *watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}

func (w *watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".md") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// schedule queues a debounced encode of one file. A new event for the same
// file resets its timer.
func (w *watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(watchDebounce, func() {
		if err := w.encodeFile(ctx, path); err != nil {
			slog.Error("encode failed", "path", path, "error", err)
		}
	})
}

func (w *watcher) encodeFile(ctx context.Context, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	id := documentID(path)
	ctx = observability.WithDocumentID(ctx, id)
	ctx, span := observability.GetGlobalTracer().StartEncodeSpan(ctx, id)

	start := time.Now()
	encoded, err := markup.EncodeWithOptions(string(source), markup.Options{
		DeferEmbeds: true,
		DeferImages: true,
	})
	observability.EndSpan(span, err)
	if err != nil {
		return err
	}
	w.recorder.ObserveEncodeDuration(time.Since(start))

	doc := &document.Document{ID: id, Markdown: string(source), Encoded: encoded}
	if err := w.store.SaveDocument(ctx, doc); err != nil {
		return err
	}

	observability.NewLogBuilder(ctx).
		With("path", path).
		With("bytes", len(encoded)).
		Info("document re-encoded")

	return w.publisher.PublishDocumentEvent(ctx, &events.DocumentEvent{
		Type:       events.EventEncoded,
		DocumentID: id,
	})
}
