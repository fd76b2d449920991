package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/triviapool/internal/api/apierr"
	"github.com/mcoot/triviapool/internal/middleware"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/session"
)

// writeError writes the API error and logs anything that is not an ordinary rejection
func writeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if !session.IsRejection(err) && apierr.Status(err) >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", middleware.RequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	apierr.WriteError(w, err)
}

// decodeJSON decodes the request body, treating an empty body as the zero value
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apierr.NewInvalidRequestError("invalid request body: " + err.Error())
	}
	return nil
}

// sessionID parses the {id} path variable
func sessionID(r *http.Request) (model.SessionID, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, apierr.NewInvalidRequestError("session id must be a positive integer")
	}
	return model.SessionID(id), nil
}

// parseAmount parses a decimal amount field
func parseAmount(field, value string) (model.Amount, error) {
	amount, err := model.ParseAmount(value)
	if err != nil {
		return 0, apierr.NewInvalidRequestError(field + " must be a non-negative integer")
	}
	return amount, nil
}
