package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	xhttp "github.com/meterline/billing/pkg/http"

	"github.com/meterline/billing/internal/services"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrMeterNotFound),
		errors.Is(err, services.ErrReadingNotFound),
		errors.Is(err, services.ErrBillNotFound),
		errors.Is(err, services.ErrTariffNotFound),
		errors.Is(err, services.ErrUnknownUtility):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyBilled),
		errors.Is(err, services.ErrAlreadySettled),
		errors.Is(err, services.ErrTariffInUse),
		errors.Is(err, services.ErrOverlappingTariff):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidReading),
		errors.Is(err, services.ErrIncompletePayment),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrNoTariff):
		writeError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
	default:
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	}
}

// pathInt64 reads a router path parameter like {id}.
func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, ok := ctx.UserValue(name).(string)
	if !ok {
		return 0, errors.New("missing path parameter " + name)
	}
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
