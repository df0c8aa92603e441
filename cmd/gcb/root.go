package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/gcbrowse/internal/datasource"
	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/config"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	project    string
	endpoint   string
	database   string
	token      string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	browse := &browseOptions{root: opts}

	cmd := &cobra.Command{
		Use:   "gcb",
		Short: "Browse and edit the records of a project's models",
		Long: `gcb is a terminal data browser. It lists the models of a project and
shows their records in a lazily loaded table that can be sorted, filtered,
edited and imported into.

Without a subcommand gcb opens the browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				debug.SetEnabled(true)
			}
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return browse.run(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/gcb/config.yaml)")
	pf.StringVarP(&opts.project, "project", "p", "", "project name from the config file")
	pf.StringVar(&opts.endpoint, "endpoint", "", "GraphQL endpoint of the project")
	pf.StringVar(&opts.database, "database", "", "SQLite database to browse offline")
	pf.StringVar(&opts.token, "token", "", "API token for the endpoint")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")
	cmd.Flags().StringVarP(&browse.model, "model", "m", "", "model to open first")

	cmd.AddCommand(
		newBrowseCmd(opts),
		newModelsCmd(opts),
		newCountCmd(opts),
		newImportCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads the config file. A broken file is reported and replaced
// by the defaults so the flags alone can still describe a connection.
func (o *rootOptions) loadConfig(cmd *cobra.Command) config.Config {
	path := o.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if path == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadFrom(config.ExpandHome(path))
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v (using defaults)\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// session is an opened backend plus the settings it was opened with.
type session struct {
	cfg     config.Config
	project config.Project
	backend api.Backend
	source  datasource.DataSource
}

func (s *session) Close() error { return s.backend.Close() }

// open resolves the project, applies flag overrides and opens its backend.
func (o *rootOptions) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg := o.loadConfig(cmd)
	project, err := cfg.ResolveProject(o.project)
	if err != nil {
		return nil, err
	}
	if o.endpoint != "" {
		project.Endpoint = o.endpoint
		project.Database = ""
	}
	if o.database != "" {
		project.Database = config.ExpandHome(o.database)
	}
	if o.token != "" {
		project.Token = o.token
	}
	if project.Name == "" {
		project.Name = "default"
	}

	backend, src, err := datasource.Open(ctx, datasource.Options{
		Database:       project.Database,
		Endpoint:       project.Endpoint,
		SystemEndpoint: project.SystemEndpoint,
		Token:          project.Token,
		Project:        project.Name,
		Timeout:        cfg.Browser.RequestTimeout,
		Logger:         func(msg string) { debug.Log("%s", msg) },
	})
	if err != nil {
		if errors.Is(err, datasource.ErrNoSource) {
			return nil, fmt.Errorf("%w (see --database, --endpoint or %s)", err, config.ConfigPath())
		}
		return nil, err
	}
	return &session{cfg: cfg, project: project, backend: backend, source: src}, nil
}

// findModel looks a model up by name, ignoring case.
func (s *session) findModel(ctx context.Context, name string) (model.Model, error) {
	models, err := s.backend.ListModels(ctx)
	if err != nil {
		return model.Model{}, fmt.Errorf("listing models: %w", err)
	}
	for _, m := range models {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return model.Model{}, api.NewError(api.KindNotFound, "find model", name, "", fmt.Errorf("no model named %q", name))
}
