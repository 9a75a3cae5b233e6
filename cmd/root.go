package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Devon-White/achievement-scraper/internal/config"
	"github.com/Devon-White/achievement-scraper/internal/pipeline"
	"github.com/Devon-White/achievement-scraper/internal/schedule"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "achievement-scraper",
	Short: "Scrape HackMyVM achievements into a CSV file",
	Long: `achievement-scraper walks HackMyVM achievement pages by numeric id,
parses each page into a record and appends the records to a CSV file.

The crawl starts at --start (or right after the last id already in the
output file) and stops after --empty-limit consecutive pages that are
empty or fail to load. With --cron it keeps running and repeats the crawl
on the given schedule.

Flag defaults can be set through ACHIEVEMENTS_* environment variables or a
.env file (ACHIEVEMENTS_ENV_FILE overrides its path).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              run,
}

func init() {
	// Flag defaults come from the environment, so .env must be loaded first.
	envFile := os.Getenv("ACHIEVEMENTS_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadEnv(envFile); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	cfg = config.Defaults()

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "verbose logging")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	pf.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "achievement page URL pattern ({id} is replaced)")
	pf.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "custom User-Agent string")
	pf.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	pf.IntVar(&cfg.Retries, "retries", cfg.Retries, "extra attempts for transient fetch failures")

	f := rootCmd.Flags()
	f.IntVar(&cfg.Start, "start", cfg.Start, "first achievement id (0 resumes after the last id in --output)")
	f.StringVarP(&cfg.Output, "output", "o", cfg.Output, "output CSV path")
	f.IntVar(&cfg.EmptyLimit, "empty-limit", cfg.EmptyLimit, "stop after this many consecutive empty or failed pages")
	f.IntVarP(&cfg.DelayMS, "delay", "d", cfg.DelayMS, "minimum delay between requests (ms)")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "append to the CSV every N records")
	f.IntVar(&cfg.MinStopID, "min-stop-id", cfg.MinStopID, "never stop on empty pages below this id")
	f.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "stop after visiting this many pages (0 = no limit)")
	f.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "also mirror records into this SQLite database")
	f.StringVar(&cfg.Cron, "cron", cfg.Cron, `repeat the crawl on a cron schedule (e.g. "0 */6 * * *" or "@daily")`)

	rootCmd.AddCommand(inspectCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	initLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Cron != "" {
		runCfg := cfg
		return schedule.Run(ctx, cfg.Cron, func(ctx context.Context) error {
			_, err := pipeline.Run(ctx, &runCfg, slog.Default())
			// Later runs pick up after the last id written.
			runCfg.Start = 0
			return err
		}, slog.Default())
	}

	res, err := pipeline.Run(ctx, &cfg, slog.Default())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "New records added: %d\n", res.Found)
	return nil
}

// initLogger installs the default slog logger writing to w.
func initLogger(w io.Writer, verbose bool, format string) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
