package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsroom-cms/newsroom/internal/app"
	"github.com/newsroom-cms/newsroom/internal/articles"
	"github.com/newsroom-cms/newsroom/jobs"
)

func newPublishApprovedCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "publish-approved",
		Short: "Publish every approved article once and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			pool, err := e.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			services := app.NewServices(e.cfg, e.logger, pool, nil, nil)
			report := services.AutoPublish.Run(cmd.Context(), jobs.TriggerManual)
			if err := writeReport(cmd.OutOrStdout(), report, asJSON); err != nil {
				return err
			}
			if report.Err != nil {
				return fmt.Errorf("publish-approved: %w", report.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

type reportOutcome struct {
	ArticleID   int64  `json:"article_id"`
	Published   bool   `json:"published"`
	PublishedAt string `json:"published_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

type reportSummary struct {
	StartedAt string          `json:"started_at"`
	Published int             `json:"published"`
	Failed    int             `json:"failed"`
	Outcomes  []reportOutcome `json:"outcomes"`
}

func writeReport(w io.Writer, report articles.SweepReport, asJSON bool) error {
	summary := reportSummary{
		StartedAt: report.StartedAt.Format(time.RFC3339),
		Published: report.Published(),
		Failed:    report.Failed(),
		Outcomes:  make([]reportOutcome, 0, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		item := reportOutcome{ArticleID: o.ArticleID, Published: o.Err == nil}
		if o.PublishedAt != nil {
			item.PublishedAt = o.PublishedAt.Format(time.RFC3339)
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		summary.Outcomes = append(summary.Outcomes, item)
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	if _, err := fmt.Fprintf(w, "published %d, failed %d\n", summary.Published, summary.Failed); err != nil {
		return err
	}
	for _, o := range summary.Outcomes {
		status := "published " + o.PublishedAt
		if !o.Published {
			status = "failed: " + o.Error
		}
		if _, err := fmt.Fprintf(w, "  article %d %s\n", o.ArticleID, status); err != nil {
			return err
		}
	}
	return nil
}
