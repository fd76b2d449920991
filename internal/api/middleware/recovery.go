package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/triviapool/internal/api/apierr"
	"github.com/mcoot/triviapool/internal/middleware"
)

// Recovery turns handler panics into JSON internal errors. The request id is
// echoed in the message so a client report can be matched to the server log.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, r *http.Request, _ any) {
		err := apierr.NewInternalError()
		if id := middleware.RequestID(r.Context()); id != "" {
			err = apierr.NewInternalErrorWithMessage("Internal server error (request " + id + ")")
		}
		apierr.WriteError(w, err)
	})
}
