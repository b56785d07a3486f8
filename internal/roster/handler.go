package roster

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vantage-payroll/vantage-payroll/internal/platform/httpx"
)

// Handler manages roster endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers roster routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listConsultants)
	r.Post("/", h.createConsultant)
	r.Get("/{id}", h.getConsultant)
	r.Patch("/{id}", h.updateConsultant)
	r.Post("/{id}/terminate", h.terminateConsultant)
}

type consultantView struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	HourlyRate      float64    `json:"hourlyRate"`
	YearlyBonus     *float64   `json:"yearlyBonus,omitempty"`
	BonusMonth      *int       `json:"bonusMonth,omitempty"`
	TerminationDate *time.Time `json:"terminationDate,omitempty"`
	Active          bool       `json:"active"`
}

func toView(c Consultant) consultantView {
	return consultantView{
		ID:              c.ID,
		Name:            c.Name,
		Email:           c.Email,
		HourlyRate:      c.HourlyRate,
		YearlyBonus:     c.YearlyBonus,
		BonusMonth:      c.BonusMonth,
		TerminationDate: c.TerminationDate,
		Active:          c.Active(),
	}
}

type createConsultantRequest struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"omitempty,email"`
	HourlyRate  float64  `json:"hourlyRate" validate:"gte=0"`
	YearlyBonus *float64 `json:"yearlyBonus"`
	BonusMonth  *int     `json:"bonusMonth" validate:"omitempty,min=1,max=12"`
}

func (h *Handler) createConsultant(w http.ResponseWriter, r *http.Request) {
	var req createConsultantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	consultant, err := h.service.CreateConsultant(r.Context(), ConsultantInput{
		Name:        req.Name,
		Email:       req.Email,
		HourlyRate:  req.HourlyRate,
		YearlyBonus: req.YearlyBonus,
		BonusMonth:  req.BonusMonth,
	})
	if err != nil {
		h.respondError(w, r, "create consultant", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(*consultant))
}

func (h *Handler) listConsultants(w http.ResponseWriter, r *http.Request) {
	var (
		consultants []Consultant
		err         error
	)
	if r.URL.Query().Get("active") == "true" {
		consultants, err = h.service.ListActiveConsultants(r.Context())
	} else {
		consultants, err = h.service.ListConsultants(r.Context())
	}
	if err != nil {
		h.respondError(w, r, "list consultants", err)
		return
	}

	views := make([]consultantView, 0, len(consultants))
	for _, c := range consultants {
		views = append(views, toView(c))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) getConsultant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	consultant, err := h.service.GetConsultant(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get consultant", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(*consultant))
}

type updateConsultantRequest struct {
	Name        *string  `json:"name"`
	Email       *string  `json:"email" validate:"omitempty,email"`
	HourlyRate  *float64 `json:"hourlyRate"`
	YearlyBonus *float64 `json:"yearlyBonus"`
	BonusMonth  *int     `json:"bonusMonth" validate:"omitempty,min=1,max=12"`
}

func (h *Handler) updateConsultant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req updateConsultantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	consultant, err := h.service.UpdateConsultant(r.Context(), id, ConsultantUpdate{
		Name:        req.Name,
		Email:       req.Email,
		HourlyRate:  req.HourlyRate,
		YearlyBonus: req.YearlyBonus,
		BonusMonth:  req.BonusMonth,
	})
	if err != nil {
		h.respondError(w, r, "update consultant", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(*consultant))
}

func (h *Handler) terminateConsultant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.TerminateConsultant(r.Context(), id); err != nil {
		h.respondError(w, r, "terminate consultant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "consultant id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyTerminated),
		errors.Is(err, ErrNonFiniteValue),
		errors.Is(err, ErrInvalidBonusMonth):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
