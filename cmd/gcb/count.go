package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/gcbrowse/pkg/metrics"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

func newCountCmd(root *rootOptions) *cobra.Command {
	var (
		filters []string
		timings bool
	)
	cmd := &cobra.Command{
		Use:   "count <Model>",
		Short: "Print the number of records of a model",
		Example: `  gcb count Post
  gcb count Post --filter title=hello --filter published=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timings {
				metrics.SetEnabled(true)
				metrics.ResetAll()
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
			filter, err := parseFilters(m, filters)
			if err != nil {
				return err
			}
			n, err := s.backend.FetchCount(ctx, m, filter)
			if err != nil {
				return fmt.Errorf("counting %s: %w", m.Name, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, n)
			if timings {
				errOut := cmd.ErrOrStderr()
				for _, st := range metrics.AllTimingStats() {
					fmt.Fprintf(errOut, "%-14s n=%d avg=%.2fms max=%.2fms\n", st.Name, st.Count, st.AvgMs, st.MaxMs)
				}
				for _, c := range metrics.Counters() {
					fmt.Fprintf(errOut, "%-14s %d\n", c.Name(), c.Value())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field=value predicate (repeatable)")
	cmd.Flags().BoolVar(&timings, "timings", false, "print backend timings to stderr")
	return cmd
}

// parseFilters turns field=value arguments into a filter on m.
func parseFilters(m model.Model, args []string) (model.Filter, error) {
	filter := model.Filter{}
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: expected field=value", arg)
		}
		f, ok := m.Field(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: %s has no field %q", arg, m.Name, name)
		}
		v, err := model.ParseFilterValue(raw, f)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", arg, err)
		}
		filter = filter.With(f.Name, v)
	}
	return filter, nil
}
