package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/NomadBuilder/facetrace/internal/config"
	"github.com/NomadBuilder/facetrace/internal/report"
	"github.com/NomadBuilder/facetrace/internal/web"
)

var traceCmd = &cobra.Command{
	Use:   "trace <image>",
	Short: "Run a one-shot trace for an image file",
	Long: `Run a full trace session for a local image and print the results.
The image is published at an ephemeral URL only for the duration of the
search and deleted before the command exits. With self-hosted publishing a
session-scoped web server hosts the ephemeral URL; search engines must be
able to reach it at PUBLIC_BASE_URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)

	traceCmd.Flags().String("report", "", "Write a Markdown report to this file")
	traceCmd.Flags().Bool("json", false, "Print the raw JSON result")
	traceCmd.Flags().Int("port", 8080, "Port for the session-scoped ephemeral server")
	traceCmd.Flags().String("host", "0.0.0.0", "Host for the session-scoped ephemeral server")
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger()
	port, host := resolveServeHostPort(cmd)

	if cfg.Publish.PublicBaseURL == "" {
		cfg.Publish.PublicBaseURL = fmt.Sprintf("http://%s:%d", host, port)
		logger.Warn("PUBLIC_BASE_URL not set, search engines must be able to reach this address",
			"base_url", cfg.Publish.PublicBaseURL)
	}

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	ctx := context.Background()
	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	// Search engines fetch the published URL back from us, so the
	// ephemeral routes must be served for the duration of the session.
	if p.store != nil {
		server := web.NewServer(p.controller, p.store, host, port, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("ephemeral server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	// Progress over candidate verification, the longest stage.
	var bar *progressbar.ProgressBar
	var barOnce sync.Once
	p.verifier.OnProgress = func(done, total int) {
		barOnce.Do(func() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Verifying candidates"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("candidates"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		})
		bar.Set(done)
	}

	result, err := p.controller.Submit(ctx, imageData)
	if err != nil {
		return fmt.Errorf("trace failed: %w", err)
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	if path := mustGetString(cmd, "report"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		if err := report.NewMarkdownWriter(f).Write(result); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", path)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummary(result)
	return nil
}
