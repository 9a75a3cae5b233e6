package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Devon-White/achievement-scraper/internal/converter"
	"github.com/Devon-White/achievement-scraper/internal/extractor"
	"github.com/Devon-White/achievement-scraper/internal/fetcher"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <id>",
	Short: "Fetch one achievement page and show what the scraper sees",
	Long: `inspect fetches a single achievement page and prints the parsed record
as CSV. If the page holds no achievement, the page is printed as markdown
instead so the markup can be checked against the parser.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id < 1 {
		return fmt.Errorf("invalid achievement id %q", args[0])
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	f := fetcher.New(cfg.BaseURL, cfg.UserAgent, 0, cfg.Timeout)
	return inspect(ctx, f, id, cmd.OutOrStdout())
}

func inspect(ctx context.Context, f *fetcher.Fetcher, id int, out io.Writer) error {
	url := f.PageURL(id)
	body, err := f.FetchWithRetry(ctx, url, cfg.Retries, nil)
	if err != nil {
		return err
	}

	a, err := extractor.Parse(body, id)
	switch {
	case err == nil:
		w := csv.NewWriter(out)
		w.Write(extractor.Header())
		w.Write(a.Record())
		w.Flush()
		return w.Error()
	case errors.Is(err, extractor.ErrEmptyPage):
		md, err := converter.Render(body, url)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "No achievement found at %s. Page content:\n\n%s\n", url, md)
		return nil
	default:
		return fmt.Errorf("parsing %s: %w", url, err)
	}
}
