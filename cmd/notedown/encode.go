package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/notedown/internal/config"
	"git.home.luguber.info/inful/notedown/internal/document"
	"git.home.luguber.info/inful/notedown/internal/events"
	"git.home.luguber.info/inful/notedown/internal/markup"
	"git.home.luguber.info/inful/notedown/internal/observability"
	"git.home.luguber.info/inful/notedown/internal/state"
)

func runEncode(cfg *config.Config) error {
	source, err := readInput(CLI.Encode.Input)
	if err != nil {
		return err
	}

	id := documentID(CLI.Encode.Input)
	ctx := observability.WithDocumentID(context.Background(), id)
	ctx, span := observability.GetGlobalTracer().StartEncodeSpan(ctx, id)

	start := time.Now()
	encoded, err := markup.EncodeWithOptions(source, markup.Options{
		DeferEmbeds: CLI.Encode.DeferEmbeds,
		DeferImages: CLI.Encode.DeferImages,
	})
	observability.EndSpan(span, err)
	if err != nil {
		return err
	}
	observability.DebugContext(ctx, "document encoded",
		slog.Duration("duration", time.Since(start)),
		slog.Int("bytes", len(encoded)))

	if CLI.Encode.Save {
		if err := saveEncoded(ctx, cfg, id, source, encoded); err != nil {
			return err
		}
	}

	return writeOutput(CLI.Encode.Output, encoded+"\n")
}

func saveEncoded(ctx context.Context, cfg *config.Config, id, markdown, encoded string) error {
	store, err := state.NewStore(cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	doc := &document.Document{ID: id, Markdown: markdown, Encoded: encoded}
	if err := store.SaveDocument(ctx, doc); err != nil {
		return err
	}
	observability.InfoContext(ctx, "draft saved", slog.String("path", cfg.State.Path))

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	return publisher.PublishDocumentEvent(ctx, &events.DocumentEvent{
		Type:       events.EventEncoded,
		DocumentID: id,
	})
}

// newPublisher returns the configured event publisher, or the no-op one when
// event publishing is disabled.
func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if !cfg.Events.Enabled {
		return events.NewNoopPublisher(), nil
	}
	publisher, err := events.NewNATSPublisher(cfg.Events.URL, cfg.Events.Subject)
	if err != nil {
		return nil, fmt.Errorf("connect event publisher: %w", err)
	}
	return publisher, nil
}
