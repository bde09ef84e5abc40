package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
)

type BorrowHandler struct {
	service   BorrowService
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewBorrowHandler(service BorrowService, logger zerolog.Logger) *BorrowHandler {
	return &BorrowHandler{
		service:   service,
		validator: NewValidator(),
		logger:    logger,
	}
}

// Quote allocates a borrow request and reports the resulting health
func (h *BorrowHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var request domain.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	quote, err := h.service.Quote(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, quote)
}

// ConfirmLoan records a loan executed on the settlement layer
func (h *BorrowHandler) ConfirmLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.ConfirmLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	loan, err := h.service.ConfirmLoan(r.Context(), &request)
	if err != nil {
		h.logger.Warn().Err(err).Str("tx_hash", request.TxHash).Msg("loan confirmation failed")
		response.FromError(w, err)
		return
	}
	response.Created(w, loan)
}
