// Package api exposes the ledger over JSON/HTTP. The caller identity comes from
// the X-Signer header, which the fronting host is trusted to have authenticated.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/escrow-ledger/internal/ledger"
	"github.com/sheikh-saqib/escrow-ledger/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SignerHeader    = "X-Signer"
	RequestIDHeader = "X-Request-ID"
)

var (
	errMissingSigner = errors.New("missing " + SignerHeader + " header")
	errBadBody       = errors.New("invalid request body")
)

// Service is the ledger surface the handlers drive.
type Service interface {
	Initialize(ctx context.Context, owner models.Address, name, description string, targetFund uint64) (*ledger.Campaign, error)
	Fund(ctx context.Context, contributor, account models.Address, amount uint64) (*models.Transaction, error)
	Withdraw(ctx context.Context, proof models.OwnerProof, account models.Address) (uint64, error)
	ProveOwnership(owner models.Address) (models.OwnerProof, models.Address, error)
	Campaign(ctx context.Context, account models.Address) (*ledger.Campaign, error)
	History(ctx context.Context, account models.Address) ([]models.Transaction, error)
	Balance(ctx context.Context, addr models.Address) (uint64, error)
	Airdrop(ctx context.Context, addr models.Address, lamports uint64) (*models.Transaction, error)
}

type Handler struct {
	svc            Service
	logger         *zap.Logger
	airdropEnabled bool
}

func NewHandler(svc Service, logger *zap.Logger, airdropEnabled bool) *Handler {
	return &Handler{svc: svc, logger: logger, airdropEnabled: airdropEnabled}
}

// Routes returns the mux with every endpoint registered and request logging applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /campaigns", h.initialize)
	mux.HandleFunc("GET /campaigns/{address}", h.campaign)
	mux.HandleFunc("POST /campaigns/{address}/fund", h.fund)
	mux.HandleFunc("POST /campaigns/{address}/withdraw", h.withdraw)
	mux.HandleFunc("GET /campaigns/{address}/transactions", h.transactions)
	mux.HandleFunc("GET /accounts/balance", h.balance)
	if h.airdropEnabled {
		mux.HandleFunc("POST /airdrop", h.airdrop)
	}

	return h.logRequests(mux)
}

type campaignResponse struct {
	*ledger.Campaign
	BalanceSOL decimal.Decimal `json:"balance_sol"`
	SurplusSOL decimal.Decimal `json:"surplus_sol"`
	TargetSOL  decimal.Decimal `json:"target_sol"`
}

func newCampaignResponse(c *ledger.Campaign) campaignResponse {
	return campaignResponse{
		Campaign:   c,
		BalanceSOL: models.LamportsToSOL(c.Balance),
		SurplusSOL: models.LamportsToSOL(c.Surplus),
		TargetSOL:  models.LamportsToSOL(c.FundData.TargetFund),
	}
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	owner, err := signer(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		TargetFund  uint64 `json:"target_fund"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, errBadBody)
		return
	}

	c, err := h.svc.Initialize(r.Context(), owner, req.Name, req.Description, req.TargetFund)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCampaignResponse(c))
}

func (h *Handler) campaign(w http.ResponseWriter, r *http.Request) {
	account, err := models.ParseAddress(r.PathValue("address"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.svc.Campaign(r.Context(), account)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCampaignResponse(c))
}

func (h *Handler) fund(w http.ResponseWriter, r *http.Request) {
	contributor, err := signer(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := models.ParseAddress(r.PathValue("address"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, errBadBody)
		return
	}

	tx, err := h.svc.Fund(r.Context(), contributor, account, req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	owner, err := signer(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := models.ParseAddress(r.PathValue("address"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// the bump is optional; without it the canonical one for the signer is used
	var req struct {
		Bump *uint8 `json:"bump"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, errBadBody)
		return
	}

	proof, _, err := h.svc.ProveOwnership(owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Bump != nil {
		proof.Bump = *req.Bump
	}

	moved, err := h.svc.Withdraw(r.Context(), proof, account)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Campaign  models.Address  `json:"campaign"`
		Owner     models.Address  `json:"owner"`
		Lamports  uint64          `json:"lamports"`
		AmountSOL decimal.Decimal `json:"amount_sol"`
	}{account, owner, moved, models.LamportsToSOL(moved)})
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	account, err := models.ParseAddress(r.PathValue("address"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	txs, err := h.svc.History(r.Context(), account)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("address")
	if raw == "" {
		http.Error(w, "address is a mandatory field", http.StatusBadRequest)
		return
	}
	addr, err := models.ParseAddress(raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	lamports, err := h.svc.Balance(r.Context(), addr)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Address    models.Address  `json:"address"`
		Lamports   uint64          `json:"lamports"`
		BalanceSOL decimal.Decimal `json:"balance_sol"`
	}{addr, lamports, models.LamportsToSOL(lamports)})
}

func (h *Handler) airdrop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address  models.Address `json:"address"`
		Lamports uint64         `json:"lamports"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, errBadBody)
		return
	}

	tx, err := h.svc.Airdrop(r.Context(), req.Address, req.Lamports)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func signer(r *http.Request) (models.Address, error) {
	raw := r.Header.Get(SignerHeader)
	if raw == "" {
		return models.Address{}, errMissingSigner
	}
	return models.ParseAddress(raw)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingSigner):
		return http.StatusUnauthorized
	case errors.Is(err, errBadBody),
		errors.Is(err, models.ErrInvalidAddress),
		errors.Is(err, ledger.ErrInvalidTarget),
		errors.Is(err, ledger.ErrInvalidContributor),
		errors.Is(err, ledger.ErrInvalidCampaign):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrNotLedgerAccount):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAccountAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrFundNotReachedYet),
		errors.Is(err, ledger.ErrInsufficientContributorBalance),
		errors.Is(err, ledger.ErrInsufficientPayerBalance),
		errors.Is(err, ledger.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", w.Header().Get(RequestIDHeader)),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		h.logger.Info("http request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
