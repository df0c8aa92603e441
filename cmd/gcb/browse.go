package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/gcbrowse/internal/datasource"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
	"github.com/vanderheijden86/gcbrowse/pkg/ui"
	"github.com/vanderheijden86/gcbrowse/pkg/watcher"
)

type browseOptions struct {
	root  *rootOptions
	model string
}

func newBrowseCmd(root *rootOptions) *cobra.Command {
	opts := &browseOptions{root: root}
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Open the data browser (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model to open first")
	return cmd
}

func (o *browseOptions) run(cmd *cobra.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("the browser needs a terminal; use 'gcb models' or 'gcb count' in scripts")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := o.root.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var w *watcher.Watcher
	if s.source.Type == datasource.SourceTypeSQLite {
		w, err = watcher.NewWatcher(s.source.Location,
			watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
		)
		if err == nil {
			if err := w.Start(); err != nil {
				debug.Log("watcher: live refresh disabled: %v", err)
				w = nil
			} else {
				defer w.Stop()
			}
		}
	}

	m := ui.NewModel(ui.Options{
		Context: ctx,
		Project: s.project.Name,
		Records: s.backend,
		Schema:  s.backend,
		Config:  s.cfg,
		Model:   o.model,
		Watcher: w,
	})
	if err := runTUIProgram(m); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set GCB_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("GCB_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
