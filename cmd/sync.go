package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/wesm/github-issue-mirror/config"
	"github.com/wesm/github-issue-mirror/internal/api"
	"github.com/wesm/github-issue-mirror/internal/db"
	"github.com/wesm/github-issue-mirror/internal/logging"
	"github.com/wesm/github-issue-mirror/internal/sync"
	"go.uber.org/zap"
)

func newSyncCommand(opts *globalOptions) *cobra.Command {
	var sinceForever bool

	cmd := &cobra.Command{
		Use:   "sync <owner/name>",
		Short: "Mirror a repository's labels and issues",
		Long: `Fetch the repository's labels and its issues (pull requests included) and
upsert them into the database. By default only issues updated in the last
3 hours are fetched; --since-forever fetches the whole history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts, args[0], sinceForever, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&sinceForever, "since-forever", false, "Sync all issues, not only those updated in the last 3 hours")

	return cmd
}

func newInitDBCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the mirror tables if they don't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
}

func runSync(ctx context.Context, opts *globalOptions, repo string, sinceForever bool, out io.Writer) error {
	if _, _, err := sync.ParseRepositoryString(repo); err != nil {
		return err
	}

	cfg, logger, err := setup(opts, out, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	client, err := api.NewGitHubClient(cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return err
	}

	syncer := sync.New(database, client, logger)
	if err := syncer.SyncRepository(ctx, repo, sinceForever); err != nil {
		return err
	}

	stats, err := database.GetStats(ctx)
	if err != nil {
		return err
	}
	logger.Infof("Mirror holds %d labels, %d issues and %d issue labels", stats.Labels, stats.Issues, stats.IssueLabels)

	return nil
}

func runInitDB(ctx context.Context, opts *globalOptions, out io.Writer) error {
	cfg, logger, err := setup(opts, out, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Initialize(ctx); err != nil {
		return err
	}

	logger.Infof("Initialized %s database", cfg.Database.Driver)
	return nil
}

// setup loads the configuration and builds the logger. The token is only
// required by commands that talk to GitHub.
func setup(opts *globalOptions, out io.Writer, needToken bool) (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.LoadConfig(opts.configPath, opts.envFile)
	if err != nil {
		return nil, nil, err
	}

	validate := cfg.Validate
	if !needToken {
		validate = cfg.Database.Validate
	}
	if err := validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Options{Level: opts.logLevel, Output: out})
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	return db.New(db.Dialect(cfg.Database.Driver), cfg.Database.DSN())
}
