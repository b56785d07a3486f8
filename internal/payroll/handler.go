package payroll

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/vantage-payroll/vantage-payroll/internal/platform/httpx"
	"github.com/vantage-payroll/vantage-payroll/internal/shared"
)

// Handler manages payroll endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
	summaries   singleflight.Group
}

// NewHandler builds a Handler instance. idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		idempotency: idempotency,
		validator:   validator.New(),
	}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/cycles", h.listCycles)
	r.Post("/cycles", h.createCycle)
	r.Get("/cycles/{id}", h.getCycle)
	r.Patch("/cycles/{id}", h.updateCycle)
	r.Get("/cycles/{id}/summary", h.getSummary)
	r.Post("/cycles/{id}/payment", h.calculatePayment)
	r.Post("/cycles/{id}/archive", h.archiveCycle)
	r.Get("/cycles/{id}/bonus", h.getBonusWorkflow)
	r.Put("/cycles/{id}/bonus/recipient", h.setBonusRecipient)
	r.Patch("/cycles/{id}/bonus", h.updateBonusWorkflow)
	r.Post("/cycles/{id}/bonus/announcement", h.generateAnnouncement)
	r.Patch("/line-items/{lineItemID}", h.updateLineItem)
}

type createCycleRequest struct {
	MonthLabel      string   `json:"monthLabel" validate:"required"`
	GlobalWorkHours *float64 `json:"globalWorkHours" validate:"omitempty,gte=0"`
	OmnigoBonus     *float64 `json:"omnigoBonus"`
	InvoiceBonus    *float64 `json:"invoiceBonus"`
}

type cycleResponse struct {
	Cycle     *Cycle     `json:"cycle"`
	LineItems []LineItem `json:"lineItems,omitempty"`
}

func (h *Handler) createCycle(w http.ResponseWriter, r *http.Request) {
	var req createCycleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, "payroll"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	cycle, lines, err := h.service.CreateCycle(r.Context(), CreateCycleInput{
		MonthLabel:      req.MonthLabel,
		GlobalWorkHours: req.GlobalWorkHours,
		OmnigoBonus:     req.OmnigoBonus,
		InvoiceBonus:    req.InvoiceBonus,
	})
	if err != nil {
		if idemKey != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), idemKey)
		}
		h.respondError(w, r, "create cycle", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cycleResponse{Cycle: cycle, LineItems: lines})
}

func (h *Handler) listCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.service.ListActiveCycles(r.Context())
	if err != nil {
		h.respondError(w, r, "list cycles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cycles)
}

func (h *Handler) getCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	cycle, err := h.service.GetCycle(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get cycle", err)
		return
	}
	lines, err := h.service.ListLineItems(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get cycle line items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cycleResponse{Cycle: cycle, LineItems: lines})
}

type updateCycleRequest struct {
	GlobalWorkHours        *float64 `json:"globalWorkHours" validate:"omitempty,gte=0"`
	OmnigoBonus            *float64 `json:"omnigoBonus"`
	EquipmentsUSD          *float64 `json:"equipmentsUSD"`
	PagamentoPIX           *float64 `json:"pagamentoPIX"`
	PagamentoInter         *float64 `json:"pagamentoInter"`
	InvoiceBonus           *float64 `json:"invoiceBonus"`
	PayoneerBalanceApplied *float64 `json:"payoneerBalanceApplied"`
}

func (h *Handler) updateCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req updateCycleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	cycle, err := h.service.UpdateCycle(r.Context(), id, CycleUpdate{
		GlobalWorkHours:        req.GlobalWorkHours,
		OmnigoBonus:            req.OmnigoBonus,
		EquipmentsUSD:          req.EquipmentsUSD,
		PagamentoPIX:           req.PagamentoPIX,
		PagamentoInter:         req.PagamentoInter,
		InvoiceBonus:           req.InvoiceBonus,
		PayoneerBalanceApplied: req.PayoneerBalanceApplied,
	})
	if err != nil {
		h.respondError(w, r, "update cycle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cycleResponse{Cycle: cycle})
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	key := "summary:" + strconv.FormatInt(id, 10)
	value, err, _ := h.summaries.Do(key, func() (any, error) {
		return h.service.GetCycleSummary(r.Context(), id)
	})
	if err != nil {
		h.respondError(w, r, "cycle summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, value)
}

func (h *Handler) calculatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	opts := PaymentOptions{NoBonus: r.URL.Query().Get("noBonus") == "true"}

	result, err := h.service.CalculatePayment(r.Context(), id, opts)
	if err != nil {
		h.respondError(w, r, "calculate payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) archiveCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.ArchiveCycle(r.Context(), id); err != nil {
		h.respondError(w, r, "archive cycle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getBonusWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	wf, err := h.service.GetOrInferBonusRecipient(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "bonus workflow", err)
		return
	}
	httpx.JSON(w, http.StatusOK, wf)
}

type setRecipientRequest struct {
	ConsultantID int64 `json:"consultantId" validate:"required,gt=0"`
}

func (h *Handler) setBonusRecipient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req setRecipientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	wf, err := h.service.SetBonusRecipient(r.Context(), id, req.ConsultantID)
	if err != nil {
		h.respondError(w, r, "set bonus recipient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, wf)
}

type updateBonusWorkflowRequest struct {
	PaidWithPayroll  *bool      `json:"paidWithPayroll"`
	BonusPaymentDate *time.Time `json:"bonusPaymentDate"`
}

func (h *Handler) updateBonusWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req updateBonusWorkflowRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}

	wf, err := h.service.UpdateBonusWorkflow(r.Context(), id, BonusWorkflowUpdate{
		PaidWithPayroll:  req.PaidWithPayroll,
		BonusPaymentDate: req.BonusPaymentDate,
	})
	if err != nil {
		h.respondError(w, r, "update bonus workflow", err)
		return
	}
	httpx.JSON(w, http.StatusOK, wf)
}

func (h *Handler) generateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	announcement, err := h.service.GenerateAnnouncement(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "generate announcement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, announcement)
}

type updateLineItemRequest struct {
	WorkHours       *float64   `json:"workHours" validate:"omitempty,gte=0"`
	AdjustmentValue *float64   `json:"adjustmentValue"`
	BonusAdvance    *float64   `json:"bonusAdvance"`
	InformedDate    *time.Time `json:"informedDate"`
	BonusPaydate    *time.Time `json:"bonusPaydate"`
}

func (h *Handler) updateLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "lineItemID")
	if !ok {
		return
	}
	var req updateLineItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	line, err := h.service.UpdateLineItem(r.Context(), id, LineItemUpdate{
		WorkHours:       req.WorkHours,
		AdjustmentValue: req.AdjustmentValue,
		BonusAdvance:    req.BonusAdvance,
		InformedDate:    req.InformedDate,
		BonusPaydate:    req.BonusPaydate,
	})
	if err != nil {
		h.respondError(w, r, "update line item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", param+" must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateCycle), errors.Is(err, ErrAlreadyArchived):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidMonthLabel), errors.Is(err, ErrNonFiniteValue):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrEmptyRoster), errors.Is(err, ErrRecipientRequired), errors.Is(err, ErrNoLineItem):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
