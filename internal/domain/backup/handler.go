package backup

import (
	"net/http"

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
	api.GET("/backup/exportar", h.Export)
	api.POST("/backup/restaurar", h.Restore)
	api.POST("/backup/criar", h.CreateSnapshot)
	api.GET("/backup/listar", h.ListSnapshots)
	api.GET("/backup/download/:id", h.Download)
}

func (h *Handler) Export(c echo.Context) error {
	archive, err := h.svc.Export(c.Request().Context())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, archive)
}

func (h *Handler) Restore(c echo.Context) error {
	var payload RestorePayload
	if err := c.Bind(&payload); err != nil {
		return apperr.JSON(c, apperr.Validation("corpo da requisição inválido"))
	}
	result, err := h.svc.Restore(c.Request().Context(), payload)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":           "Backup restaurado com sucesso",
		"totalPacientes":    result.PatientCount,
		"totalRecebimentos": result.ReceiptCount,
	})
}

func (h *Handler) CreateSnapshot(c echo.Context) error {
	snap, err := h.svc.CreateSnapshot(c.Request().Context())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, snap)
}

func (h *Handler) ListSnapshots(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ListSnapshots())
}

func (h *Handler) Download(c echo.Context) error {
	archive, err := h.svc.GetSnapshot(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, archive)
}
