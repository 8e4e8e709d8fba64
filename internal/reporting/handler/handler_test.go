package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimbly/internal/reporting"
	dErrors "reimbly/pkg/domain-errors"
)

type fakeService struct {
	period reporting.Period
	report reporting.Report
	err    error
}

func (f *fakeService) Generate(_ context.Context, period reporting.Period) (reporting.Report, error) {
	f.period = period
	return f.report, f.err
}

func serve(service *fakeService, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleSummary(t *testing.T) {
	t.Run("returns the generated report", func(t *testing.T) {
		service := &fakeService{report: reporting.Report{
			Summary:   reporting.Summary{TotalCases: 2, TotalAmount: 150},
			Period:    reporting.PeriodWeekly,
			Generated: time.Now().UTC(),
		}}

		rec := serve(service, "/reports/summary?period=weekly")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, reporting.PeriodWeekly, service.period)

		var report reporting.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, 2, report.Summary.TotalCases)
	})

	t.Run("unknown period maps to bad request", func(t *testing.T) {
		service := &fakeService{err: dErrors.New(dErrors.CodeValidation, "unknown report period")}

		rec := serve(service, "/reports/summary?period=hourly")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
