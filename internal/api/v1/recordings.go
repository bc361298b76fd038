package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DA1F/RoAnalyzer/internal/datastore"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/recorder"
)

// RecordingList is the response of GET /recordings.
type RecordingList struct {
	Recordings []recorder.Recording `json:"recordings"`
	Total      int64                `json:"total"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}

// CreateRecording saves the buffered window. By default the save is queued
// and 202 with the job is returned; with ?wait=true the request blocks and
// returns the recording.
func (c *Controller) CreateRecording(ctx echo.Context) error {
	var req recorder.SaveRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid recording request", http.StatusBadRequest)
	}
	switch req.Kind {
	case "", recorder.KindWindow, recorder.KindAudio:
	default:
		return c.HandleError(ctx, nil, "Kind must be window or audio", http.StatusBadRequest)
	}

	if wait, _ := strconv.ParseBool(ctx.QueryParam("wait")); wait {
		rec, err := c.recorder.Save(ctx.Request().Context(), req)
		if err != nil {
			return c.HandleError(ctx, err, "Recording failed", statusFor(err))
		}
		return ctx.JSON(http.StatusCreated, rec)
	}

	job, err := c.recorder.SaveAsync(req)
	if err != nil {
		return c.HandleError(ctx, err, "Recording not accepted", statusFor(err))
	}
	ctx.Response().Header().Set(echo.HeaderLocation, Prefix+"/jobs/"+job.ID)
	return ctx.JSON(http.StatusAccepted, job)
}

// GetJob returns the state of a queued save.
func (c *Controller) GetJob(ctx echo.Context) error {
	job, ok := c.recorder.Job(ctx.Param("id"))
	if !ok {
		return c.HandleError(ctx, nil, "Job not found", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, job)
}

// ListRecordings pages the catalog, newest first. Supports limit, offset,
// kind and session query parameters.
func (c *Controller) ListRecordings(ctx echo.Context) error {
	if c.store == nil {
		return c.HandleError(ctx, nil, "Recording catalog is disabled", http.StatusServiceUnavailable)
	}

	opts := datastore.ListOptions{
		Kind:    ctx.QueryParam("kind"),
		Session: ctx.QueryParam("session"),
	}
	var err error
	if opts.Limit, err = intParam(ctx, "limit", datastore.DefaultListLimit); err != nil {
		return c.HandleError(ctx, err, "Invalid limit", http.StatusBadRequest)
	}
	if opts.Offset, err = intParam(ctx, "offset", 0); err != nil {
		return c.HandleError(ctx, err, "Invalid offset", http.StatusBadRequest)
	}
	opts.Limit = min(opts.Limit, datastore.MaxListLimit)

	recs, total, err := c.store.ListRecordings(ctx.Request().Context(), opts)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list recordings", statusFor(err))
	}
	if recs == nil {
		recs = []recorder.Recording{}
	}
	return ctx.JSON(http.StatusOK, RecordingList{
		Recordings: recs,
		Total:      total,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
}

// GetRecording returns one catalog entry.
func (c *Controller) GetRecording(ctx echo.Context) error {
	if c.store == nil {
		return c.HandleError(ctx, nil, "Recording catalog is disabled", http.StatusServiceUnavailable)
	}

	rec, err := c.store.GetRecording(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get recording", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, rec)
}

// intParam parses a non-negative integer query parameter.
func intParam(ctx echo.Context, name string, def int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.Newf("%s must be a non-negative integer, got %q", name, raw).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return v, nil
}
