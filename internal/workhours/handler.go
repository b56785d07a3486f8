package workhours

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

// Handler manages work-hours endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers work-hours routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{year}", h.listYear)
	r.Get("/{year}/{month}", h.getMonth)
	r.Post("/import", h.importRows)
}

type referenceView struct {
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	Weekdays      int     `json:"weekdays"`
	WorkHours     float64 `json:"workHours"`
	FromReference bool    `json:"fromReference"`
}

func (h *Handler) getMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Year", "year must be numeric")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Month", "month must be between 1 and 12")
		return
	}

	hours, fromRef, err := h.service.HoursFor(r.Context(), year, time.Month(month))
	if err != nil {
		h.logger.Error("work hours lookup", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	view := referenceView{Year: year, Month: month, WorkHours: hours, FromReference: fromRef}
	if fromRef {
		if ref, err := h.service.Get(r.Context(), year, time.Month(month)); err == nil {
			view.Weekdays = ref.Weekdays
		}
	} else {
		view.Weekdays = CountWeekdays(year, time.Month(month))
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) listYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Year", "year must be numeric")
		return
	}
	refs, err := h.service.ListYear(r.Context(), year)
	if err != nil {
		h.logger.Error("work hours list", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]referenceView, 0, len(refs))
	for _, ref := range refs {
		views = append(views, referenceView{
			Year:          ref.Year,
			Month:         ref.Month,
			Weekdays:      ref.Weekdays,
			WorkHours:     ref.WorkHours,
			FromReference: true,
		})
	}
	httpx.JSON(w, http.StatusOK, views)
}

type importRequest struct {
	Rows []struct {
		Year      int     `json:"year" validate:"required"`
		Month     int     `json:"month" validate:"required,min=1,max=12"`
		Weekdays  int     `json:"weekdays" validate:"min=0,max=31"`
		WorkHours float64 `json:"workHours" validate:"gte=0"`
	} `json:"rows" validate:"required,min=1,dive"`
}

func (h *Handler) importRows(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	refs := make([]ReferenceInput, 0, len(req.Rows))
	for _, row := range req.Rows {
		refs = append(refs, ReferenceInput{
			Year:      row.Year,
			Month:     row.Month,
			Weekdays:  row.Weekdays,
			WorkHours: row.WorkHours,
		})
	}

	if err := h.service.Import(r.Context(), refs); err != nil {
		if errors.Is(err, ErrInvalidReference) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
			return
		}
		h.logger.Error("work hours import", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"imported": len(refs)})
}
