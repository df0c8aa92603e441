package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type modelSummary struct {
	Name   string   `json:"name"`
	Plural string   `json:"plural"`
	Count  int      `json:"count"`
	Fields []string `json:"fields"`
}

func newModelsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models of the project with their record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := root.open(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			models, err := s.backend.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("listing models: %w", err)
			}
			summaries := make([]modelSummary, 0, len(models))
			for _, m := range models {
				fields := make([]string, 0, len(m.Fields))
				for _, f := range m.Fields {
					fields = append(fields, f.Name)
				}
				summaries = append(summaries, modelSummary{Name: m.Name, Plural: m.Plural(), Count: m.ItemCount, Fields: fields})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(summaries, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding models: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No models yet.")
				return nil
			}
			for _, m := range summaries {
				fmt.Fprintf(out, "%-24s %8d\n", m.Name, m.Count)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}
