package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytd-go/ytd/internal/app"
	"github.com/ytd-go/ytd/internal/domain"
	"github.com/ytd-go/ytd/internal/infrastructure"
	"github.com/ytd-go/ytd/pkg/logger"
	"github.com/ytd-go/ytd/pkg/ytd"
)

var (
	configPath string
	binary     string
	logLevel   string
	noHistory  bool
	rootCmd    = &cobra.Command{
		Use:           "ytd",
		Short:         "ytd - run youtube-dl style downloaders",
		Long:          `A command-line wrapper that runs youtube-dl, yt-dlp or youtube-dlc in a target directory and keeps a history of the runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// exitError carries a process exit code without printing anything more
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./configs, $HOME/.ytd, /etc/ytd)")
	rootCmd.PersistentFlags().StringVar(&binary, "binary", "", "Downloader executable (youtube-dl, yt-dlp, youtube-dlc or a path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Don't record runs in the history database")

	downloadCmd.Flags().StringP("dir", "d", "", "Output directory (must exist)")
	downloadCmd.Flags().StringArrayP("arg", "a", nil, `Downloader argument, "name" or "name value" (repeatable)`)
	historyCmd.Flags().StringP("result", "r", "", "Filter by result (SUCCESS, IOERROR, FAILURE)")
	historyCmd.Flags().String("filter-binary", "", "Filter by downloader executable as recorded")
	historyCmd.Flags().StringP("dir", "d", "", "Filter by output directory as recorded")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(serveCmd)
}

// cliEnv bundles what every command needs
type cliEnv struct {
	config  *domain.Config
	log     *zap.Logger
	repo    *infrastructure.SQLiteDownloadRepository
	service *app.DownloadService
}

// setup loads configuration and wires logger, repository and service
func setup() (*cliEnv, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if binary != "" {
		config.Downloader.Binary = binary
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if noHistory {
		config.History.Enabled = false
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &cliEnv{config: config, log: log}

	var repo domain.DownloadRepository
	if config.History.Enabled {
		rt.repo, err = infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath)
		if err != nil {
			return nil, err
		}
		repo = rt.repo
	}

	rt.service = app.NewDownloadService(repo, &config.Downloader, log)
	return rt, nil
}

// close releases the repository and flushes the logger
func (rt *cliEnv) close() {
	if rt.repo != nil {
		if err := rt.repo.Close(); err != nil {
			rt.log.Warn("Failed to close history database", zap.Error(err))
		}
	}
	_ = rt.log.Sync()
}

var downloadCmd = &cobra.Command{
	Use:   "download [links...]",
	Short: "Run the downloader for one or more links",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		dir, _ := cmd.Flags().GetString("dir")
		rawArgs, _ := cmd.Flags().GetStringArray("arg")
		dlArgs := make([]ytd.Arg, 0, len(rawArgs))
		for _, raw := range rawArgs {
			dlArgs = append(dlArgs, ytd.ParseArg(raw))
		}

		record, err := rt.service.Download(cmd.Context(), app.DownloadRequest{
			OutputDir: dir,
			Args:      dlArgs,
			Links:     args,
		})
		if record == nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), record.Output)
		if record.Output != "" && !strings.HasSuffix(record.Output, "\n") {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (id %s)\n", record.Result, record.OutputDir, record.ID)

		if err != nil {
			return err
		}
		if !record.Succeeded() {
			return &exitError{code: 1}
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded downloader runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		result, _ := cmd.Flags().GetString("result")
		filterBinary, _ := cmd.Flags().GetString("filter-binary")
		dir, _ := cmd.Flags().GetString("dir")
		records, err := rt.service.ListRecords(app.RecordFilter{
			Result:    ytd.ResultType(strings.ToUpper(result)),
			Binary:    filterBinary,
			OutputDir: dir,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLINKS\tRESULT\tDIR\tCREATED")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(r.ID, 8),
				truncate(strings.Join(r.LinkList(), " "), 40),
				r.Result,
				truncate(r.OutputDir, 30),
				r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a recorded run including its output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		r, err := rt.service.GetRecord(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Download Details:\n")
		fmt.Fprintf(out, "  ID:       %s\n", r.ID)
		fmt.Fprintf(out, "  Links:    %s\n", strings.Join(r.LinkList(), " "))
		fmt.Fprintf(out, "  Dir:      %s\n", r.OutputDir)
		fmt.Fprintf(out, "  Command:  %s\n", r.Command)
		fmt.Fprintf(out, "  Result:   %s\n", r.Result)
		fmt.Fprintf(out, "  Duration: %dms\n", r.DurationMS)
		fmt.Fprintf(out, "  Created:  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  Output:\n%s\n", r.Output)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		stats, err := rt.service.GetStats()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Download Statistics:")
		fmt.Fprintf(out, "  Total:   %d\n", stats.Total)
		fmt.Fprintf(out, "  Success: %d\n", stats.Success)
		fmt.Fprintf(out, "  IOError: %d\n", stats.IOError)
		fmt.Fprintf(out, "  Failure: %d\n", stats.Failure)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.service.DeleteRecord(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Download record deleted")
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
