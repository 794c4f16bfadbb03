package handler

import (
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/portfolio"
)

// SeriesRow is a single date of the published series with values rendered at
// the published precision
type SeriesRow struct {
	Date   string            `json:"date" example:"2026-01-05"`
	Values map[string]string `json:"values"`
}

type SeriesResponse struct {
	Columns []string     `json:"columns"`
	Rows    []*SeriesRow `json:"rows"`
}

type PointResponse struct {
	Date  string `json:"date" example:"2026-01-05"`
	Value string `json:"value" example:"2021.31"`
}

type ColumnResponse struct {
	Name   string           `json:"name"`
	Points []*PointResponse `json:"points"`
}

type RunResponse struct {
	RunID          string         `json:"run_id"`
	Outcome        string         `json:"outcome"`
	Reason         string         `json:"reason,omitempty"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	IsContinuation bool           `json:"is_continuation"`
	Computed       map[string]int `json:"computed"`
	Skipped        []string       `json:"skipped"`
	FinishedAt     string         `json:"finished_at"`
}

// Series serves the published series read from Store. The most recent
// scheduled run is recorded with SetLastRun.
type Series struct {
	Store portfolio.SeriesStore

	lastRun      *RunResponse
	lastRunMutex sync.RWMutex
}

func NewSeries(store portfolio.SeriesStore) *Series {
	return &Series{Store: store}
}

// SetLastRun records the result of a run for the status endpoint
func (h *Series) SetLastRun(result *portfolio.Result, finished time.Time) {
	run := &RunResponse{
		RunID:          result.RunID.String(),
		Outcome:        string(result.Outcome),
		Reason:         result.Reason,
		StartDate:      result.StartDate.Format(common.DateFormat),
		EndDate:        result.EndDate.Format(common.DateFormat),
		IsContinuation: result.IsContinuation,
		Computed:       result.Computed,
		Skipped:        result.Skipped,
		FinishedAt:     finished.Format(time.RFC3339),
	}

	h.lastRunMutex.Lock()
	h.lastRun = run
	h.lastRunMutex.Unlock()
}

// parseRange reads the optional start, end and tail query parameters
func parseRange(c *fiber.Ctx) (begin, end time.Time, tail int, err error) {
	if s := c.Query("start"); s != "" {
		if begin, err = common.ParseDay(s); err != nil {
			return
		}
	}
	if s := c.Query("end"); s != "" {
		if end, err = common.ParseDay(s); err != nil {
			return
		}
	}
	if s := c.Query("tail"); s != "" {
		if tail, err = strconv.Atoi(s); err != nil || tail < 0 {
			err = fiber.ErrBadRequest
			return
		}
	}
	return
}

func (h *Series) load(c *fiber.Ctx) (*portfolio.Series, error) {
	begin, end, tail, err := parseRange(c)
	if err != nil {
		log.Warn().Err(err).Str("Query", c.Request().URI().QueryArgs().String()).Msg("invalid series range")
		return nil, fiber.ErrBadRequest
	}

	series, err := h.Store.LoadSeries(c.UserContext())
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not load series")
		return nil, fiber.ErrInternalServerError
	}
	if series == nil {
		series = portfolio.NewSeries()
	}

	series = series.Between(begin, end)
	if tail > 0 {
		series = series.Tail(tail)
	}
	return series, nil
}

// ListSeries returns every column of the published series
func (h *Series) ListSeries(c *fiber.Ctx) error {
	series, err := h.load(c)
	if err != nil {
		return err
	}

	resp := SeriesResponse{
		Columns: series.Columns,
		Rows:    make([]*SeriesRow, 0, series.Len()),
	}
	for _, row := range series.Rows {
		values := make(map[string]string, len(row.Values))
		for k, v := range row.Values {
			values[k] = v.StringFixed(portfolio.OutputPlaces)
		}
		resp.Rows = append(resp.Rows, &SeriesRow{
			Date:   row.Date.Format(common.DateFormat),
			Values: values,
		})
	}

	return c.JSON(resp)
}

// GetSeries returns the values of a single portfolio or benchmark
func (h *Series) GetSeries(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return fiber.ErrBadRequest
	}

	series, err := h.load(c)
	if err != nil {
		return err
	}
	if !series.HasColumn(name) {
		return fiber.ErrNotFound
	}

	points := series.Points(name)
	resp := ColumnResponse{
		Name:   name,
		Points: make([]*PointResponse, 0, len(points)),
	}
	for _, pt := range points {
		resp.Points = append(resp.Points, &PointResponse{
			Date:  pt.Date.Format(common.DateFormat),
			Value: pt.Value.StringFixed(portfolio.OutputPlaces),
		})
	}

	return c.JSON(resp)
}

// Status returns the outcome of the most recent scheduled run
func (h *Series) Status(c *fiber.Ctx) error {
	h.lastRunMutex.RLock()
	run := h.lastRun
	h.lastRunMutex.RUnlock()

	if run == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(run)
}
