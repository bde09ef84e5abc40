package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/response"
	"github.com/segyhp/lending-engine/pkg/utils"
)

type OfferHandler struct {
	service   OfferService
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewOfferHandler(service OfferService, logger zerolog.Logger) *OfferHandler {
	return &OfferHandler{
		service:   service,
		validator: NewValidator(),
		logger:    logger,
	}
}

// SubmitOffer stores a signed offer; resubmitting the same payload answers 200
func (h *OfferHandler) SubmitOffer(w http.ResponseWriter, r *http.Request) {
	var request domain.SubmitOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.FromError(w, customError.WrapInvalidOfferPayload("Invalid JSON payload: "+err.Error()))
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.FromError(w, customError.WrapInvalidOfferPayload("Validation failed: "+err.Error()))
		return
	}

	result, err := h.service.Submit(r.Context(), &request)
	if err != nil {
		h.logger.Debug().Err(err).Str("owner", request.Owner).Msg("offer rejected")
		response.FromError(w, err)
		return
	}

	if result.Created {
		response.Created(w, result)
		return
	}
	response.Success(w, result)
}

func (h *OfferHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	key, err := utils.ParseHash(mux.Vars(r)["key"])
	if err != nil {
		response.BadRequest(w, "Invalid offer key", err)
		return
	}

	view, err := h.service.Get(r.Context(), key)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// ListTokenOffers returns the token's book, cheapest first, with live usability
func (h *OfferHandler) ListTokenOffers(w http.ResponseWriter, r *http.Request) {
	token, err := utils.ParseAddress(mux.Vars(r)["token"])
	if err != nil {
		response.BadRequest(w, "Invalid token address", err)
		return
	}

	views, err := h.service.ListByToken(r.Context(), token)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, views)
}

func (h *OfferHandler) ListOwnerOffers(w http.ResponseWriter, r *http.Request) {
	owner, err := utils.ParseAddress(mux.Vars(r)["owner"])
	if err != nil {
		response.BadRequest(w, "Invalid owner address", err)
		return
	}

	views, err := h.service.ListByOwner(r.Context(), owner)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, views)
}

func (h *OfferHandler) NextOfferID(w http.ResponseWriter, r *http.Request) {
	owner, err := utils.ParseAddress(mux.Vars(r)["owner"])
	if err != nil {
		response.BadRequest(w, "Invalid owner address", err)
		return
	}

	next, err := h.service.NextOfferID(r.Context(), owner)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, next)
}
