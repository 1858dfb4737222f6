// Package target implements the target command group for working with
// target.yaml job files.
package target

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Maybol283/EthoScraper/internal/config"
)

// defaultTargetFile is used when no target file argument is given.
const defaultTargetFile = "target.yaml"

// Command returns the target command for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Inspect and validate target configurations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(validateCommand())

	return cmd
}

// validateCommand loads a target file and reports its effective settings.
func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [target.yaml]",
		Short: "Validate a target configuration file",
		Long: `Validate loads a target.yaml file, applies defaults, and reports the
effective job settings. Unknown keys, malformed transformations, and
out-of-range settings are rejected the same way the scrape command would
reject them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetFile := defaultTargetFile
			if len(args) > 0 {
				targetFile = args[0]
			}

			job, err := config.Load(targetFile)
			if err != nil {
				return fmt.Errorf("invalid target: %w", err)
			}

			printJob(cmd, targetFile, job)

			return nil
		},
	}
}

// printJob renders the effective job settings as a table.
func printJob(cmd *cobra.Command, path string, job *config.Job) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetTitle("Valid target: %s", path)

	t.AppendRows([]table.Row{
		{"Job name", job.JobName},
		{"Start URLs", len(job.StartURLs)},
		{"Allowed domains", fmt.Sprint(job.Crawl.AllowedDomains)},
		{"Max depth", job.Crawl.MaxDepth},
		{"Max pages", job.Crawl.MaxPages},
		{"Follow links", job.Crawl.FollowLinks},
		{"Delay", job.Request.Delay},
		{"Concurrent requests", job.Request.ConcurrentRequests},
		{"Respect robots.txt", job.Request.RespectRobotsTxt},
		{"Fields", len(job.Fields)},
		{"Filters", len(job.Filters.ExcludeIf)},
		{"Output", job.Output.File},
	})

	t.Render()
}
