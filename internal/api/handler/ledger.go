package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/triviapool/internal/api/apierr"
	"github.com/mcoot/triviapool/internal/api/middleware"
	"github.com/mcoot/triviapool/internal/api/request"
	"github.com/mcoot/triviapool/internal/api/response"
	"github.com/mcoot/triviapool/internal/ledger"
	"github.com/mcoot/triviapool/internal/model"
)

// LedgerHandler exposes read access to the token ledger plus dev-only funding helpers
type LedgerHandler struct {
	adapter *ledger.Adapter
	logger  *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(adapter *ledger.Adapter, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		adapter: adapter,
		logger:  logger.With(slog.String("component", "ledger-handler")),
	}
}

// Balance handles GET /api/v1/ledger/balances/{address}
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	addr := model.Address(mux.Vars(r)["address"])

	balance, err := h.adapter.Token().BalanceOf(r.Context(), addr)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.BalanceResponse{Address: string(addr), Balance: balance.String()})
}

// Allowance handles GET /api/v1/ledger/allowances/{owner}
func (h *LedgerHandler) Allowance(w http.ResponseWriter, r *http.Request) {
	owner := model.Address(mux.Vars(r)["owner"])

	allowance, err := h.adapter.AllowanceOf(r.Context(), owner)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.AllowanceResponse{
		Owner:     string(owner),
		Spender:   string(h.adapter.Escrow()),
		Allowance: allowance.String(),
	})
}

// Approve handles POST /api/v1/ledger/approve, setting the caller's allowance for the escrow
func (h *LedgerHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req request.ApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	owner := middleware.GetCaller(r.Context())
	if err := h.adapter.Token().Approve(r.Context(), owner, h.adapter.Escrow(), amount); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.OK(w, response.AllowanceResponse{
		Owner:     string(owner),
		Spender:   string(h.adapter.Escrow()),
		Allowance: amount.String(),
	})
}

// Mint handles POST /api/v1/ledger/mint
func (h *LedgerHandler) Mint(w http.ResponseWriter, r *http.Request) {
	minter, ok := h.adapter.Token().(ledger.Minter)
	if !ok {
		writeError(h.logger, w, r, apierr.NewNotSupportedError("the configured ledger cannot mint"))
		return
	}

	var req request.MintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	to := model.Address(req.To)
	if err := minter.Mint(r.Context(), to, amount); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	balance, err := h.adapter.Token().BalanceOf(r.Context(), to)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "tokens minted",
		slog.String("to", string(to)),
		slog.String("amount", amount.String()))
	response.OK(w, response.BalanceResponse{Address: string(to), Balance: balance.String()})
}
