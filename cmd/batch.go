package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dodoricogino/INMO-enlaces-PDF/api"
	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/scraper"
	"github.com/dodoricogino/INMO-enlaces-PDF/services"
	"github.com/dodoricogino/INMO-enlaces-PDF/storage"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

var flagOut string

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract every URL listed in a file and write the results to CSV",
	Long: `Batch reads one listing URL per line (blank lines and # comments are skipped),
extracts them concurrently and writes one CSV row per URL, failures included.
A summary report is printed at the end.

Examples:
  inmo batch urls.txt
  inmo batch urls.txt --out ./output/run.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchCmd,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&flagOut, "out", "", "CSV output path (default: CSV_OUTPUT_PATH)")
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open url list: %w", err)
	}
	urls, err := readURLs(f)
	f.Close()
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs found in %s", args[0])
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := flagOut
	if out == "" {
		out = cfg.CSVOutputPath
	}
	csvWriter, err := storage.NewCSVWriter(out)
	if err != nil {
		return err
	}
	defer csvWriter.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("batch starting", "urls", len(urls), "concurrency", cfg.MaxConcurrency, "rate_ms", cfg.RateLimitMs)
	pool := utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs)
	results := runBatch(ctx, a.extractor, pool, a.retryConfig(), urls)

	if err := writeResults(csvWriter, results); err != nil {
		return err
	}
	a.logger.Info("results written", "path", out, "rows", len(results))

	insights := services.NewInsightService(a.logger)
	insights.Print(os.Stdout, insights.Generate(results))
	return nil
}

// readURLs returns the unique URLs of r in first-seen order.
func readURLs(r io.Reader) ([]string, error) {
	seen := utils.NewURLSet()
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen.Add(line) {
			urls = append(urls, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

// runBatch extracts urls on pool and returns one result per URL, in input
// order. URLs never started because ctx ended are reported as cancelled.
func runBatch(ctx context.Context, ext api.Extractor, pool *utils.WorkerPool, retry utils.RetryConfig, urls []string) []*models.ExtractionResult {
	results := make([]*models.ExtractionResult, len(urls))
	var mu sync.Mutex
	set := func(i int, r *models.ExtractionResult) {
		mu.Lock()
		results[i] = r
		mu.Unlock()
	}

	for i, u := range urls {
		i, u := i, u
		submitted := pool.Submit(ctx, func(ctx context.Context) {
			var payload *models.ExtractedPayload
			err := retry.Do(ctx, "extract "+u, func(ctx context.Context) error {
				p, err := ext.Extract(ctx, u)
				if err != nil {
					return err
				}
				payload = p
				return nil
			})
			set(i, newResult(u, payload, err))
		})
		if !submitted {
			break
		}
	}
	pool.Wait()

	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = newResult(urls[i], nil, err)
		}
	}
	return results
}

func newResult(url string, payload *models.ExtractedPayload, err error) *models.ExtractionResult {
	r := &models.ExtractionResult{URL: url, Payload: payload, ExtractedAt: time.Now().UTC()}
	if err != nil {
		r.Payload = nil
		r.ErrorKind = scraper.Kind(err)
		r.Error = err.Error()
	}
	return r
}

func writeResults(w storage.ResultWriter, results []*models.ExtractionResult) error {
	if err := w.Write(results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
