package billing

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
	api.GET("/pacientes", h.ListPatients)
	api.GET("/pacientes/proximo-codigo", h.NextPatientCode)
	api.GET("/pacientes/codigo/:codigo", h.GetPatientByCode)
	api.GET("/pacientes/:id", h.GetPatient)
	api.POST("/pacientes", h.CreatePatient)
	api.PUT("/pacientes/:id", h.UpdatePatient)
	api.DELETE("/pacientes/:id", h.DeletePatient)

	api.GET("/recebimentos", h.ListReceipts)
	api.GET("/recebimentos/:id", h.GetReceipt)
	api.POST("/recebimentos", h.CreateReceipt)
	api.PUT("/recebimentos/:id", h.UpdateReceipt)
	api.PUT("/recebimentos/:id/status", h.SetReceiptStatus)
	api.DELETE("/recebimentos/:id", h.DeleteReceipt)
}

// -- Patients --

func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.svc.ListPatients(c.Request().Context())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.NotFound("Paciente não encontrado"))
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatientByCode(c echo.Context) error {
	p, err := h.svc.GetPatientByCode(c.Request().Context(), c.Param("codigo"))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) NextPatientCode(c echo.Context) error {
	code, err := h.svc.NextPatientCode(c.Request().Context())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"proximoCodigo": code})
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var in PatientInput
	if err := c.Bind(&in); err != nil {
		return apperr.JSON(c, apperr.Validation("corpo da requisição inválido"))
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), in)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.NotFound("Paciente não encontrado"))
	}
	var upd PatientUpdate
	if err := c.Bind(&upd); err != nil {
		return apperr.JSON(c, apperr.Validation("corpo da requisição inválido"))
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.NotFound("Paciente não encontrado"))
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return apperr.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Receipts --

func (h *Handler) ListReceipts(c echo.Context) error {
	q := ReceiptQuery{
		Start:  c.QueryParam("inicio"),
		End:    c.QueryParam("fim"),
		Status: c.QueryParam("status"),
	}
	if code := c.QueryParam("pacienteCodigo"); code != "" && code != StatusAll {
		q.PatientCode = code
	}
	if raw := c.QueryParam("pacienteId"); raw != "" && raw != StatusAll {
		id, err := parseID(raw)
		if err != nil {
			// A malformed id matches no receipt rather than failing.
			id = -1
		}
		q.PatientID = id
	}
	receipts, err := h.svc.ListReceipts(c.Request().Context(), q)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, receipts)
}

func (h *Handler) GetReceipt(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.NotFound("Recebimento não encontrado"))
	}
	r, err := h.svc.GetReceipt(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) CreateReceipt(c echo.Context) error {
	var in ReceiptInput
	if err := c.Bind(&in); err != nil {
		return apperr.JSON(c, apperr.Validation("corpo da requisição inválido"))
	}
	r, err := h.svc.CreateReceipt(c.Request().Context(), in)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) UpdateReceipt(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.NotFound("Recebimento não encontrado"))
	}
	var upd ReceiptUpdate
	if err := c.Bind(&upd); err != nil {
		return apperr.JSON(c, apperr.Validation("corpo da requisição inválido"))
	}
	r, err := h.svc.UpdateReceipt(c.Request().Context(), id, upd)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) SetReceiptStatus(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.NotFound("Recebimento não encontrado"))
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.JSON(c, apperr.Validation("corpo da requisição inválido"))
	}
	r, err := h.svc.SetReceiptStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteReceipt(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return apperr.JSON(c, apperr.NotFound("Recebimento não encontrado"))
	}
	if err := h.svc.DeleteReceipt(c.Request().Context(), id); err != nil {
		return apperr.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
