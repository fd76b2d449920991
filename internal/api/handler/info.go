package handler

import (
	"net/http"

	"github.com/mcoot/triviapool/internal/api/response"
	"github.com/mcoot/triviapool/internal/services/session"
)

// Health handles GET /api/v1/health
func Health(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// Info handles GET /api/v1/info
func Info(controller *session.Controller, devLedger bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, response.InfoResponse{
			Admin:     string(controller.Admin()),
			Escrow:    string(controller.Escrow()),
			EntryFee:  controller.EntryFee().String(),
			DevLedger: devLedger,
		})
	}
}
