package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wesm/github-issue-mirror/internal/api"
	"github.com/wesm/github-issue-mirror/internal/db"
)

var version = "dev"

// Exit codes
const (
	exitError     = 1
	exitHTTP      = 2
	exitTransport = 3
	exitStorage   = 4
)

type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "github-issue-mirror",
		Short: "Mirror a GitHub repository's issues and labels into a SQL database",
		Long: `github-issue-mirror copies the labels and issues of one GitHub repository
into the github_labels, github_issues and github_issue_labels tables so other
tools can query issue metadata without calling the GitHub API.

The GitHub token and database connection are read from the environment
(GITHUB_TOKEN, DB_DRIVER, DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD,
DB_PATH), optionally from a .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file, ignored if missing")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSyncCommand(opts))
	rootCmd.AddCommand(newInitDBCommand(opts))

	return rootCmd
}

func mapErrorToExitCode(err error) int {
	var httpErr *api.HTTPError
	var transportErr *api.TransportError
	var storageErr *db.StorageError

	switch {
	case errors.As(err, &httpErr):
		return exitHTTP
	case errors.As(err, &transportErr):
		return exitTransport
	case errors.As(err, &storageErr):
		return exitStorage
	default:
		return exitError
	}
}
