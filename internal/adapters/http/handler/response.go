package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var now = func() time.Time { return time.Now().UTC() }

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Timestamp  time.Time `json:"timestamp"`
}

func sendJSON(ctx context.Context, w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "encode response", "error", err, "code", code)
	}
}

func sendErr(ctx context.Context, w http.ResponseWriter, err error) {
	code := toHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "api error", "error", err, "code", code)
	} else {
		slog.WarnContext(ctx, "api error", "error", err, "code", code)
	}

	sendJSON(ctx, w, code, errorBody{Error: errorDetail{
		Message:    publicMessage(err, code),
		StatusCode: code,
		Timestamp:  now(),
	}})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errBodyTooLarge
		case errors.Is(err, io.EOF):
			return fmt.Errorf("empty body: %w", errMalformedBody)
		default:
			return fmt.Errorf("%w: %s", errMalformedBody, err.Error())
		}
	}
	return nil
}
