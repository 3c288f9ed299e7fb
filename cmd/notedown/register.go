package main

import (
	"context"

	"git.home.luguber.info/inful/notedown/internal/config"
	"git.home.luguber.info/inful/notedown/internal/noteapi"
	"git.home.luguber.info/inful/notedown/internal/observability"
)

func runRegister(cfg *config.Config) error {
	source, err := readInput(CLI.Register.Input)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout.Std())
	defer cancel()
	ctx = observability.WithDocumentID(ctx, CLI.Register.Key)

	client := noteapi.NewClient(cfg.API.BaseURL)
	rewritten, err := client.ResolveEmbedKeys(ctx, source, CLI.Register.Key)
	if err != nil {
		return err
	}

	return writeOutput(CLI.Register.Output, rewritten+"\n")
}
