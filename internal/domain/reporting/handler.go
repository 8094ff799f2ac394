package reporting

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinfin/clinfin/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/health", h.GetHealth)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/relatorios", h.GetReport)
}

func (h *Handler) GetHealth(c echo.Context) error {
	health, err := h.svc.Health(c.Request().Context())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, health)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	dash, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, dash)
}

func (h *Handler) GetReport(c echo.Context) error {
	q := ReportQuery{
		Kind:        c.QueryParam("tipo"),
		PatientCode: c.QueryParam("pacienteCodigo"),
		Start:       c.QueryParam("inicio"),
		End:         c.QueryParam("fim"),
	}
	// Malformed numeric parameters behave like absent ones, which
	// falls back to the full-ledger report.
	q.Month, _ = strconv.Atoi(c.QueryParam("mes"))
	q.Year, _ = strconv.Atoi(c.QueryParam("ano"))
	q.PatientID, _ = strconv.ParseInt(c.QueryParam("pacienteId"), 10, 64)

	report, err := h.svc.Report(c.Request().Context(), q)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
