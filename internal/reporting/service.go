// Package reporting aggregates stored cases into summary statistics and time
// series. It is read-only and tolerates staleness: reports reflect the store
// at query time, not a transactional snapshot.
package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"reimbly/internal/approval"
	dErrors "reimbly/pkg/domain-errors"
)

// Period selects the bucketing granularity for time series.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Summary aggregates the whole case population.
type Summary struct {
	TotalAmount   float64            `json:"total_amount"`
	AverageAmount float64            `json:"average_amount"`
	TotalCases    int                `json:"total_cases"`
	ByCategory    map[string]float64 `json:"category_distribution"`
	ByOrg         map[string]float64 `json:"organization_distribution"`
	ByStatus      map[string]int     `json:"status_counts"`
}

// Report is the full reporting payload.
type Report struct {
	Summary    Summary            `json:"summary"`
	TimeSeries map[string]float64 `json:"time_series"`
	Period     Period             `json:"period"`
	Generated  time.Time          `json:"generated_at"`
}

// CaseLister is the slice of the case store reporting needs.
type CaseLister interface {
	List(ctx context.Context) ([]approval.Case, error)
}

// Service computes reports over the case store.
type Service struct {
	store  CaseLister
	logger *slog.Logger
}

// NewService constructs a reporting service.
func NewService(store CaseLister, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Generate lists cases once and computes the summary and time series
// concurrently.
func (s *Service) Generate(ctx context.Context, period Period) (Report, error) {
	switch period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
	case "":
		period = PeriodDaily
	default:
		return Report{}, dErrors.Newf(dErrors.CodeValidation, "unknown report period %q", period)
	}

	cases, err := s.store.List(ctx)
	if err != nil {
		return Report{}, dErrors.Wrap(dErrors.CodeStore, "list cases for report", err)
	}

	report := Report{Period: period, Generated: time.Now().UTC()}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Summary = summarize(cases)
		return nil
	})
	g.Go(func() error {
		report.TimeSeries = timeSeries(cases, period)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	s.logger.DebugContext(ctx, "report generated",
		"period", string(period),
		"cases", len(cases),
	)
	return report, nil
}

func summarize(cases []approval.Case) Summary {
	summary := Summary{
		ByCategory: make(map[string]float64),
		ByOrg:      make(map[string]float64),
		ByStatus:   make(map[string]int),
	}
	for _, c := range cases {
		summary.TotalAmount += c.Amount
		summary.ByCategory[string(c.Category)] += c.Amount
		if c.Organization != "" {
			summary.ByOrg[c.Organization] += c.Amount
		}
		summary.ByStatus[string(c.Status)]++
	}
	summary.TotalCases = len(cases)
	if len(cases) > 0 {
		summary.AverageAmount = summary.TotalAmount / float64(len(cases))
	}
	return summary
}

func timeSeries(cases []approval.Case, period Period) map[string]float64 {
	series := make(map[string]float64)
	for _, c := range cases {
		series[bucket(c.SubmittedAt, period)] += c.Amount
	}
	return series
}

func bucket(t time.Time, period Period) string {
	switch period {
	case PeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
