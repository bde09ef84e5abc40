package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
	"github.com/segyhp/lending-engine/pkg/utils"
)

type AccountHandler struct {
	service AccountService
}

func NewAccountHandler(service AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Health reports the account's health ratio, optionally under
// collateralDelta and debtDelta query parameters
func (h *AccountHandler) Health(w http.ResponseWriter, r *http.Request) {
	account, err := utils.ParseAddress(mux.Vars(r)["account"])
	if err != nil {
		response.BadRequest(w, "Invalid account address", err)
		return
	}

	query := r.URL.Query()
	collateral, err := utils.DecimalFromString(query.Get("collateralDelta"))
	if err != nil {
		response.BadRequest(w, "Invalid collateralDelta", err)
		return
	}
	debt, err := utils.DecimalFromString(query.Get("debtDelta"))
	if err != nil {
		response.BadRequest(w, "Invalid debtDelta", err)
		return
	}

	var delta *domain.HealthDelta
	if !collateral.IsZero() || !debt.IsZero() {
		delta = &domain.HealthDelta{Collateral: collateral, Debt: debt}
	}

	health, err := h.service.Health(r.Context(), account, delta)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, health)
}

func (h *AccountHandler) Deposits(w http.ResponseWriter, r *http.Request) {
	account, err := utils.ParseAddress(mux.Vars(r)["account"])
	if err != nil {
		response.BadRequest(w, "Invalid account address", err)
		return
	}

	deposits, err := h.service.Deposits(r.Context(), account)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if deposits == nil {
		deposits = []domain.Deposit{}
	}
	response.Success(w, deposits)
}
