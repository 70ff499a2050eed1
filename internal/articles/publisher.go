package articles

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

// SweepOutcome is the result for one approved article.
type SweepOutcome struct {
	ArticleID   int64      `json:"article_id"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Err         error      `json:"-"`
}

// SweepReport summarises one auto-publish pass.
type SweepReport struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Outcomes  []SweepOutcome `json:"outcomes"`
	// Err is set when the approved articles could not be listed at all.
	Err error `json:"-"`
}

// Published counts the articles moved to published.
func (r SweepReport) Published() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts the articles left untouched because of an error.
func (r SweepReport) Failed() int {
	return len(r.Outcomes) - r.Published()
}

// AutoPublisher promotes every approved article to published.
// Audit is optional; entries carry no actor.
type AutoPublisher struct {
	Repo   Repository
	Logger *slog.Logger
	Audit  shared.AuditRecorder
	clock  func() time.Time
}

// NewAutoPublisher constructs an AutoPublisher.
func NewAutoPublisher(repo Repository, logger *slog.Logger) *AutoPublisher {
	return &AutoPublisher{
		Repo:   repo,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the time source.
func (p *AutoPublisher) WithClock(clock func() time.Time) *AutoPublisher {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Sweep publishes all approved articles, stamping each with the sweep start time unless it
// already carries a published_at. Failures are recorded per article and never stop the
// pass; a second run right after finds nothing to do.
func (p *AutoPublisher) Sweep(ctx context.Context) (report SweepReport) {
	start := p.now()
	report = SweepReport{StartedAt: start, Outcomes: []SweepOutcome{}}
	defer func() {
		report.Duration = time.Since(start)
		p.logReport(ctx, report)
	}()

	if err := SystemTransition(StatusApproved, StatusPublished); err != nil {
		report.Err = err
		return report
	}
	ids, err := p.Repo.ListIDsByStatus(ctx, StatusApproved)
	if err != nil {
		report.Err = err
		return report
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}
		outcome := SweepOutcome{ArticleID: id}
		res, err := p.Repo.UpdateStatus(ctx, id, StatusApproved, StatusPublished, start)
		if err != nil {
			outcome.Err = err
			p.logger().WarnContext(ctx, "auto-publish article failed", slog.Int64("article_id", id), slog.Any("error", err))
		} else {
			outcome.PublishedAt = res.PublishedAt
			if err := p.Repo.RecordTransition(ctx, Transition{ArticleID: id, From: StatusApproved, To: StatusPublished, At: start}); err != nil {
				p.logger().WarnContext(ctx, "record article transition", slog.Int64("article_id", id), slog.Any("error", err))
			}
			p.audit(ctx, id, start)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report
}

func (p *AutoPublisher) audit(ctx context.Context, id int64, at time.Time) {
	if p.Audit == nil {
		return
	}
	err := p.Audit.Record(ctx, shared.AuditLog{
		Action:   "article.auto_publish",
		Entity:   "article",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"from": string(StatusApproved), "to": string(StatusPublished)},
		At:       at,
	})
	if err != nil {
		p.logger().WarnContext(ctx, "audit auto-publish", slog.Int64("article_id", id), slog.Any("error", err))
	}
}

func (p *AutoPublisher) logReport(ctx context.Context, report SweepReport) {
	attrs := []any{
		slog.Int("published", report.Published()),
		slog.Int("failed", report.Failed()),
		slog.Duration("duration", report.Duration),
	}
	if report.Err != nil {
		p.logger().ErrorContext(ctx, "auto-publish sweep aborted", append(attrs, slog.Any("error", report.Err))...)
		return
	}
	p.logger().InfoContext(ctx, "auto-publish sweep completed", attrs...)
}

func (p *AutoPublisher) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger.With(slog.String("component", "auto_publish"))
	}
	return slog.Default().With(slog.String("component", "auto_publish"))
}

func (p *AutoPublisher) now() time.Time {
	if p.clock != nil {
		return p.clock()
	}
	return time.Now().UTC()
}
