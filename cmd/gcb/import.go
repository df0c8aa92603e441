package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/gcbrowse/pkg/config"
	"github.com/vanderheijden86/gcbrowse/pkg/datasync"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
	"github.com/vanderheijden86/gcbrowse/pkg/store"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <Model> <file>...",
		Short: "Create records from JSON files",
		Long: `Import reads JSON files holding an array of objects (or a single object)
and creates one record per object. Arguments may be glob patterns such as
data/**/*.json. Records are sent in chunks of browser.import_chunk_size.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			files, err := expandImportArgs(args[1:])
			if err != nil {
				return err
			}
			debug.Dump("import files", files)
			var records []map[string]any
			for _, f := range files {
				recs, err := datasync.ReadImportFile(f)
				if err != nil {
					return err
				}
				records = append(records, recs...)
			}

			s, err := root.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := s.findModel(ctx, args[0])
			if err != nil {
				return err
			}

			var failures []error
			notifier := datasync.NotifierFunc(func(n datasync.Notification) {
				if n.Level == datasync.LevelError {
					failures = append(failures, errors.New(n.Message))
				}
			})
			ctrl := datasync.New(ctx, s.backend, store.NewState(), controllerOptions(s.cfg, notifier, &progressPrinter{w: cmd.ErrOrStderr()}))
			if err := runHeadless(ctx, ctrl, ctrl.SetModel(m)); err != nil {
				return err
			}
			if err := runHeadless(ctx, ctrl, ctrl.Dispatch(datasync.ImportIntent{Records: records})); err != nil {
				return err
			}
			if len(failures) > 0 {
				return fmt.Errorf("import into %s: %w", m.Name, errors.Join(failures...))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %s (%s now has %d records)\n",
				len(records), m.Name, m.Name, ctrl.State().Window.ItemCount())
			return nil
		},
	}
	return cmd
}

func controllerOptions(cfg config.Config, n datasync.Notifier, p datasync.ProgressSink) datasync.Options {
	return datasync.Options{
		PageSize:    cfg.Browser.PageSize,
		ChunkSize:   cfg.Browser.ImportChunkSize,
		Concurrency: cfg.Browser.BatchConcurrency,
		Notifier:    n,
		Progress:    p,
		Tracker:     datasync.DebugTracker{},
	}
}

// expandImportArgs resolves glob patterns to a sorted, de-duplicated file list.
func expandImportArgs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(config.ExpandHome(p))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", p)
		}
		for _, f := range matches {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// progressPrinter reports import chunks on stderr.
type progressPrinter struct {
	w     io.Writer
	total int
	done  int
}

func (p *progressPrinter) StartProgress(total int) {
	p.total, p.done = total, 0
}

func (p *progressPrinter) IncrementProgress() {
	p.done++
	fmt.Fprintf(p.w, "\rchunk %d/%d", p.done, p.total)
}

func (p *progressPrinter) FinishProgress() {
	if p.total > 0 {
		fmt.Fprintln(p.w)
	}
}
