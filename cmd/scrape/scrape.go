// Package scrape implements the scrape command: it gates the run on the
// compliance file, assembles the crawl collaborators from the target
// configuration, and prints a run summary.
package scrape

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Maybol283/EthoScraper/internal/compliance"
	"github.com/Maybol283/EthoScraper/internal/config"
	"github.com/Maybol283/EthoScraper/internal/crawler"
	"github.com/Maybol283/EthoScraper/internal/fetch"
	"github.com/Maybol283/EthoScraper/internal/logger"
	"github.com/Maybol283/EthoScraper/internal/output"
)

// defaultTargetFile is used when no target file argument is given.
const defaultTargetFile = "target.yaml"

// Command returns the scrape command for use in the root command.
func Command() *cobra.Command {
	var (
		maxPages   int
		outputPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "scrape [target.yaml]",
		Short: "Crawl and extract records per a target configuration",
		Long: `Scrape crawls the sites described by a target.yaml job file and writes
the extracted records to the configured output file. The run is refused when
the project's compliance assessment is incomplete, unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetFile := defaultTargetFile
			if len(args) > 0 {
				targetFile = args[0]
			}

			return run(cmd, targetFile, maxPages, outputPath, force)
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "override the job's max_pages")
	cmd.Flags().StringVar(&outputPath, "output", "", "override the job's output file template")
	cmd.Flags().BoolVar(&force, "force", false, "bypass the compliance assessment check (not recommended)")

	return cmd
}

// run executes one scrape end to end.
func run(cmd *cobra.Command, targetFile string, maxPages int, outputPath string, force bool) error {
	job, err := config.Load(targetFile)
	if err != nil {
		return fmt.Errorf("load target: %w", err)
	}

	if maxPages > 0 {
		job.Crawl.MaxPages = maxPages
	}
	if outputPath != "" {
		job.Output.File = outputPath
	}

	if gateErr := complianceGate(cmd, force); gateErr != nil {
		return gateErr
	}

	log, err := buildLogger(job)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	writer := output.NewWriter(output.ExpandPath(job.Output.File, job.JobName, time.Now()))

	c := crawler.New(crawler.Options{
		Job:       job,
		Fetcher:   newFetcher(job),
		Evaluator: fetch.NewGoqueryEvaluator(),
		Robots:    newRobots(job),
		Writer:    writer,
		Logger:    log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, runErr := c.Run(ctx)

	printSummary(cmd, job, stats)

	if runErr != nil {
		return fmt.Errorf("scrape failed: %w", runErr)
	}

	return nil
}

// complianceGate refuses the run when the configured compliance file exists
// but its assessment is incomplete. A missing file is tolerated: not every
// project keeps one next to the target file.
func complianceGate(cmd *cobra.Command, force bool) error {
	path := viper.GetString("compliance.file")
	if path == "" {
		return nil
	}

	err := compliance.Check(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if force {
		cmd.PrintErrf("Warning: compliance check bypassed with --force: %v\n", err)
		return nil
	}

	return fmt.Errorf("compliance check failed (use --force to bypass): %w", err)
}

// buildLogger creates the run logger, teeing to the job's log file when
// monitoring.log_file is configured.
func buildLogger(job *config.Job) (logger.Interface, error) {
	outputs := []string{"stdout"}
	if job.Monitoring.LogFile != "" {
		outputs = append(outputs, output.ExpandPath(job.Monitoring.LogFile, job.JobName, time.Now()))
	}

	return logger.New(&logger.Config{
		Level:       viper.GetString("logger.level"),
		Encoding:    viper.GetString("logger.encoding"),
		OutputPaths: outputs,
	})
}

// newFetcher builds the colly fetcher for the job.
func newFetcher(job *config.Job) fetch.Fetcher {
	return fetch.NewCollyFetcher(fetch.CollyOptions{
		UserAgent:     job.Request.UserAgent,
		Timeout:       job.Request.Timeout,
		LinkSelectors: job.Links.CSSSelectors,
	})
}

// newRobots builds the robots.txt checker, or nil when the job ignores
// robots.txt.
func newRobots(job *config.Job) crawler.RobotsPolicy {
	if !job.Request.RespectRobotsTxt {
		return nil
	}

	return fetch.NewRobotsChecker(
		&http.Client{Timeout: job.Request.Timeout},
		job.Request.UserAgent,
		0,
	)
}

// printSummary renders the run statistics as a table.
func printSummary(cmd *cobra.Command, job *config.Job, stats *crawler.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetTitle("Scrape summary: %s", job.JobName)

	t.AppendRows([]table.Row{
		{"Run ID", stats.RunID},
		{"Duration", stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond)},
		{"Pages visited", stats.PagesVisited},
		{"Records accepted", stats.RecordsAccepted},
		{"Records dropped", stats.DroppedTotal()},
		{"Fetch failures", stats.FetchFailures},
		{"Robots skips", stats.RobotsSkipped},
		{"Output", stats.OutputPath},
	})

	for reason, count := range stats.RecordsDropped {
		t.AppendRow(table.Row{"  dropped: " + reason, strconv.Itoa(count)})
	}

	t.Render()
}
