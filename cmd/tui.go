package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plstore/internal/library"
	"github.com/desertthunder/plstore/internal/shared"
	"github.com/desertthunder/plstore/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, f, err := shared.NewFileLogger("./tmp/plstore-tui.log")
	if err != nil {
		return err
	}
	defer f.Close()
	r.logger = fileLogger

	db, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := db.WatchExternal(ctx, config.Live.PollInterval()); err != nil {
			r.logger.Error("external change polling stopped", "error", err)
		}
	}()

	model := ui.NewModel(ctx, library.NewService(db, r.logger))
	defer model.Close()

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
