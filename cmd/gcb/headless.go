package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/gcbrowse/pkg/datasync"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
)

// runHeadless drives the controller without a terminal: it runs cmd and
// every follow-up command until the controller is idle. The commands of a
// batch run concurrently, as they would under a tea.Program.
func runHeadless(ctx context.Context, ctrl *datasync.Controller, cmd tea.Cmd) error {
	defer debug.LogEnterExit("runHeadless")()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := queue[0]
		queue = queue[1:]
		for _, msg := range execCmd(ctx, next) {
			follow, ok := ctrl.Apply(msg)
			if ok && follow != nil {
				queue = append(queue, follow)
			}
		}
	}
	return nil
}

// execCmd runs cmd, flattening batches, and returns the produced messages
// in batch order.
func execCmd(ctx context.Context, cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	}

	results := make([][]tea.Msg, len(batch))
	var g errgroup.Group
	for i, sub := range batch {
		g.Go(func() error {
			results[i] = execCmd(ctx, sub)
			return nil
		})
	}
	g.Wait()

	var out []tea.Msg
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
