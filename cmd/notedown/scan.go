package main

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/notedown/internal/config"
	"git.home.luguber.info/inful/notedown/internal/placeholder"
	"git.home.luguber.info/inful/notedown/internal/state"
)

func runScan() error {
	source, err := readInput(CLI.Scan.Input)
	if err != nil {
		return err
	}

	scanner := placeholder.NewScanner(source)
	count := 0
	for {
		token, ok := scanner.Next()
		if !ok {
			break
		}
		count++
		switch token.Class {
		case placeholder.ClassEmbed:
			fmt.Printf("%-6s %s\n", token.Class, token.URL)
		case placeholder.ClassImage:
			fmt.Printf("%-6s %s (%s)\n", token.Class, token.Path, token.Alt)
		case placeholder.ClassAlign:
			fmt.Printf("%-6s %s: %s\n", token.Class, token.Alignment, token.Text)
		case placeholder.ClassTOC:
			fmt.Printf("%-6s\n", token.Class)
		}
	}
	if count == 0 {
		fmt.Println("no placeholders")
	}
	return nil
}

func runResults(cfg *config.Config) error {
	store, err := state.NewStore(cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.ResultsFor(context.Background(), CLI.Results.ID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no recorded results")
		return nil
	}
	for _, r := range results {
		line := fmt.Sprintf("%-6s %-14s %s", r.Class, r.Outcome, r.Payload)
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}
