package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mw "github.com/DA1F/RoAnalyzer/internal/api/middleware"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/media"
)

// IngestVideo accepts one raw RGB24 frame as the request body. The capture
// timestamp comes from the X-Timestamp-Us header as Unix microseconds, the
// clock device audio capture stamps with.
func (c *Controller) IngestVideo(ctx echo.Context) error {
	ts, data, err := c.readRecord(ctx)
	if err != nil {
		return c.recordError(ctx, err, "Invalid video frame")
	}

	if want := c.recorder.FrameBytes(); len(data) != want {
		err := errors.Newf("frame is %d bytes, expected %d", len(data), want).
			Component("api").
			Category(errors.CategoryMalformedFrame).
			Build()
		return c.HandleError(ctx, err, "Invalid video frame", http.StatusBadRequest)
	}

	c.recorder.PushVideo(media.FrameFromMicros(ts, data))
	return ctx.NoContent(http.StatusNoContent)
}

// IngestAudio accepts one chunk of interleaved s16le PCM.
func (c *Controller) IngestAudio(ctx echo.Context) error {
	if !c.recorder.AudioEnabled() {
		return c.HandleError(ctx, nil, "Audio capture is disabled", http.StatusConflict)
	}

	ts, data, err := c.readRecord(ctx)
	if err != nil {
		return c.recordError(ctx, err, "Invalid audio chunk")
	}

	if align := c.recorder.AudioFrameBytes(); len(data) == 0 || len(data)%align != 0 {
		err := errors.Newf("chunk is %d bytes, not a positive multiple of %d", len(data), align).
			Component("api").
			Category(errors.CategoryMalformedFrame).
			Build()
		return c.HandleError(ctx, err, "Invalid audio chunk", http.StatusBadRequest)
	}

	c.recorder.PushAudio(media.ChunkFromMicros(ts, data))
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) readRecord(ctx echo.Context) (uint64, []byte, error) {
	raw := ctx.Request().Header.Get(mw.HeaderTimestamp)
	if raw == "" {
		return 0, nil, errors.Newf("missing %s header", mw.HeaderTimestamp).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	ts, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, nil, errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Context("header", mw.HeaderTimestamp).
			Build()
	}

	data, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return 0, nil, he
		}
		return 0, nil, errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "read_body").
			Build()
	}
	return ts, data, nil
}

// recordError passes body limit rejections through unchanged.
func (c *Controller) recordError(ctx echo.Context, err error, message string) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return c.HandleError(ctx, err, message, statusFor(err))
}
