package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"hookgen/internal/directive"
	"hookgen/internal/generator"
	"hookgen/internal/mapping"
	"hookgen/internal/ui"
)

type generateOutcome struct {
	result *generator.Result
	err    error
}

// runGenerateWithUI runs the generator in the background and renders its
// progress events until the run finishes.
func runGenerateWithUI(ctx context.Context, title string, table *mapping.Table, opts generator.Options, reg *directive.Registry) (*generator.Result, error) {
	var targets []string
	for _, m := range reg.Mixins() {
		targets = append(targets, m.Mixin.Target)
	}

	events := make(chan generator.Event, 256)
	outcomeCh := make(chan generateOutcome, 1)
	go func() {
		opts.Progress = generator.ChannelSink{Ch: events}
		res, err := generator.New(table, opts).Generate(ctx, reg)
		outcomeCh <- generateOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, targets, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// Drain so the generator never blocks on a quit UI.
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
