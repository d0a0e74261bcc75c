package registry

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medsave/rxwizard/internal/platform/medsave"
	"github.com/medsave/rxwizard/pkg/pagination"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.GET("/patients/export", h.ExportPatients)

	api.GET("/doctors", h.ListDoctors)
	api.POST("/doctors", h.SaveDoctor)
	api.DELETE("/doctors/:id", h.DeleteDoctor)

	api.GET("/dashboard", h.Dashboard)
	api.GET("/registration-numbers/next", h.NextRegistrationNumber)
}

func httpError(err error) error {
	var apiErr *medsave.APIError
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrMissingHospital):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &apiErr), errors.Is(err, medsave.ErrTransport):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func pageParam(c echo.Context) int {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	return page
}

func patientFilter(c echo.Context) PatientFilter {
	return PatientFilter{
		RegistrationNo: c.QueryParam("registration_no"),
		Phone:          c.QueryParam("phone"),
	}
}

func (h *Handler) ListPatients(c echo.Context) error {
	res, err := h.svc.ListPatients(c.Request().Context(), pageParam(c), patientFilter(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(res.Patients, res.Total, res.Params))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.svc.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ExportPatients(c echo.Context) error {
	page := pageParam(c)
	data, err := h.svc.ExportPatients(c.Request().Context(), page, patientFilter(c))
	if err != nil {
		return httpError(err)
	}
	name := "patients-page-" + strconv.Itoa(pagination.New(page, PatientsPerPage).Page) + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+name)
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	res, err := h.svc.ListDoctors(c.Request().Context(), c.QueryParam("q"), pageParam(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(res.Doctors, res.Total, res.Params))
}

func (h *Handler) SaveDoctor(c echo.Context) error {
	var form DoctorForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.SaveDoctor(c.Request().Context(), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	if err := h.svc.DeleteDoctor(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dashboard(c echo.Context) error {
	counts, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *Handler) NextRegistrationNumber(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.NextRegistrationNumber(c.Request().Context()))
}
