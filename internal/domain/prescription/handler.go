package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medsave/rxwizard/internal/domain/derive"
	"github.com/medsave/rxwizard/internal/domain/draft"
	"github.com/medsave/rxwizard/internal/platform/auth"
	"github.com/medsave/rxwizard/internal/platform/debounce"
	"github.com/medsave/rxwizard/internal/platform/medsave"
	"github.com/medsave/rxwizard/internal/platform/session"
)

type Handler struct {
	svc    *Service
	issuer *auth.Issuer
}

func NewHandler(svc *Service, issuer *auth.Issuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/drafts", h.StartDraft)

	// Every other draft route needs the token issued for that draft.
	g := api.Group("/drafts/:id", auth.RequireDraftSession(h.issuer, "id"))
	g.GET("", h.GetDraft)
	g.DELETE("", h.DiscardDraft)
	g.POST("/reset", h.ResetDraft)
	g.PATCH("/sections/:section", h.ReplaceSection)
	g.POST("/mutations", h.ApplyMutation)

	g.POST("/doctor/:doctor_id", h.SelectDoctor)
	g.POST("/steps/hospital", h.SaveHospitalStep)

	g.GET("/patients/search", h.SearchPatients)
	g.POST("/patients/:patient_id/select", h.SelectPatient)
	g.POST("/patients/:patient_id/load", h.LoadExistingPatient)
	g.POST("/age", h.SetAge)
	g.POST("/anthropometrics", h.SetAnthropometrics)
	g.POST("/postal/:pin", h.LookupPostalCode)
	g.GET("/validation", h.ValidatePatient)
	g.POST("/steps/patient", h.SavePatientStep)

	g.POST("/hypersensitivity", h.AddHypersensitivity)
	g.POST("/exams/:key/toggle", h.ToggleExam)
	g.POST("/investigations", h.AddInvestigation)
	g.POST("/diagnoses", h.AddDiagnosis)
	g.POST("/complaints", h.AddComplaint)
	g.DELETE("/complaints/:index", h.RemoveComplaint)
	g.POST("/medications", h.AddMedication)
	g.DELETE("/medications/:index", h.RemoveMedication)

	g.GET("/bundle", h.GetBundle)
	g.POST("/submit", h.Submit)
}

// httpError maps service errors onto response codes.
func httpError(err error) error {
	var ue *UserError
	var apiErr *medsave.APIError
	switch {
	case errors.Is(err, ErrDraftNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "draft not found")
	case errors.Is(err, draft.ErrUnknownSection),
		errors.Is(err, draft.ErrUnknownField),
		errors.Is(err, draft.ErrNotObject),
		errors.Is(err, draft.ErrNotArray),
		errors.Is(err, draft.ErrInvalidValue),
		errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrMissingHospital),
		errors.Is(err, ErrMissingDoctor),
		errors.Is(err, ErrMissingPatient),
		errors.Is(err, ErrStale),
		errors.Is(err, session.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, debounce.ErrSuperseded):
		return echo.NewHTTPError(http.StatusConflict, "superseded by a newer search")
	case errors.As(err, &ue):
		return echo.NewHTTPError(http.StatusBadGateway, ue.Notice)
	case errors.As(err, &apiErr), errors.Is(err, medsave.ErrTransport):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func reqCtx(c echo.Context) context.Context { return c.Request().Context() }

func indexParam(c echo.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	return i, nil
}

func respond(c echo.Context, v any, err error) error {
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

// -- Draft lifecycle --

func (h *Handler) StartDraft(c echo.Context) error {
	started, err := h.svc.Start(reqCtx(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, started)
}

func (h *Handler) GetDraft(c echo.Context) error {
	d, err := h.svc.Get(reqCtx(c), c.Param("id"))
	return respond(c, d, err)
}

func (h *Handler) DiscardDraft(c echo.Context) error {
	if err := h.svc.Discard(reqCtx(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ResetDraft(c echo.Context) error {
	d, err := h.svc.Reset(reqCtx(c), c.Param("id"))
	return respond(c, d, err)
}

func (h *Handler) ReplaceSection(c echo.Context) error {
	var body map[string]json.RawMessage
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "section body must be an object")
	}
	partial := make(map[string]any, len(body))
	for k, v := range body {
		partial[k] = v
	}
	d, err := h.svc.ReplaceSection(reqCtx(c), c.Param("id"), draft.Section(c.Param("section")), partial)
	return respond(c, d, err)
}

func (h *Handler) ApplyMutation(c echo.Context) error {
	var m draft.Mutation
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Apply(reqCtx(c), c.Param("id"), m)
	return respond(c, d, err)
}

// -- Hospital and doctor --

func (h *Handler) SelectDoctor(c echo.Context) error {
	d, err := h.svc.SelectDoctor(reqCtx(c), c.Param("id"), c.Param("doctor_id"))
	return respond(c, d, err)
}

func (h *Handler) SaveHospitalStep(c echo.Context) error {
	d, err := h.svc.SaveHospitalStep(reqCtx(c), c.Param("id"))
	return respond(c, d, err)
}

// -- Patient --

func (h *Handler) SearchPatients(c echo.Context) error {
	results, err := h.svc.SearchPatients(reqCtx(c), c.Param("id"), c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": results, "total": len(results)})
}

func (h *Handler) SelectPatient(c echo.Context) error {
	sel, err := h.svc.SelectPatient(reqCtx(c), c.Param("id"), c.Param("patient_id"))
	return respond(c, sel, err)
}

func (h *Handler) LoadExistingPatient(c echo.Context) error {
	res, err := h.svc.LoadExistingPatient(reqCtx(c), c.Param("id"), c.Param("patient_id"))
	return respond(c, res, err)
}

func (h *Handler) SetAge(c echo.Context) error {
	var in AgeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.SetAge(reqCtx(c), c.Param("id"), in)
	return respond(c, res, err)
}

type anthropometricsRequest struct {
	Weight string `json:"weight"`
	Height string `json:"height"`
}

func (h *Handler) SetAnthropometrics(c echo.Context) error {
	var req anthropometricsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.SetAnthropometrics(reqCtx(c), c.Param("id"), req.Weight, req.Height)
	return respond(c, res, err)
}

func (h *Handler) LookupPostalCode(c echo.Context) error {
	res, err := h.svc.LookupPostalCode(reqCtx(c), c.Param("id"), c.Param("pin"))
	return respond(c, res, err)
}

func ageFromQuery(c echo.Context) *AgeInput {
	input := c.QueryParam("age_input")
	if input == "" {
		return nil
	}
	mode := derive.AgeMode(c.QueryParam("age_mode"))
	if mode == "" {
		mode = derive.ModeDOB
	}
	return &AgeInput{Mode: mode, Input: input}
}

func (h *Handler) ValidatePatient(c echo.Context) error {
	report, err := h.svc.ValidatePatient(reqCtx(c), c.Param("id"), ageFromQuery(c))
	return respond(c, report, err)
}

type patientStepRequest struct {
	AgeInput *AgeInput `json:"age_input"`
}

func (h *Handler) SavePatientStep(c echo.Context) error {
	var req patientStepRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	step, err := h.svc.SavePatientStep(reqCtx(c), c.Param("id"), req.AgeInput)
	if errors.Is(err, ErrValidation) {
		return c.JSON(http.StatusUnprocessableEntity, step)
	}
	return respond(c, step, err)
}

// -- Medical and treatment --

type textRequest struct {
	Drug string `json:"drug"`
	Name string `json:"name"`
	Text string `json:"text"`
}

func (h *Handler) bindText(c echo.Context) (textRequest, error) {
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, nil
}

func (h *Handler) AddHypersensitivity(c echo.Context) error {
	req, err := h.bindText(c)
	if err != nil {
		return err
	}
	d, err := h.svc.AddHypersensitivity(reqCtx(c), c.Param("id"), req.Drug)
	return respond(c, d, err)
}

func (h *Handler) ToggleExam(c echo.Context) error {
	d, err := h.svc.ToggleExam(reqCtx(c), c.Param("id"), c.Param("key"))
	return respond(c, d, err)
}

func (h *Handler) AddInvestigation(c echo.Context) error {
	req, err := h.bindText(c)
	if err != nil {
		return err
	}
	d, err := h.svc.AddInvestigation(reqCtx(c), c.Param("id"), req.Name)
	return respond(c, d, err)
}

func (h *Handler) AddDiagnosis(c echo.Context) error {
	req, err := h.bindText(c)
	if err != nil {
		return err
	}
	d, err := h.svc.AddDiagnosis(reqCtx(c), c.Param("id"), req.Name)
	return respond(c, d, err)
}

func (h *Handler) AddComplaint(c echo.Context) error {
	req, err := h.bindText(c)
	if err != nil {
		return err
	}
	d, err := h.svc.AddComplaint(reqCtx(c), c.Param("id"), req.Text)
	return respond(c, d, err)
}

func (h *Handler) RemoveComplaint(c echo.Context) error {
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	d, err := h.svc.RemoveComplaint(reqCtx(c), c.Param("id"), i)
	return respond(c, d, err)
}

func (h *Handler) AddMedication(c echo.Context) error {
	var m draft.Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.AddMedication(reqCtx(c), c.Param("id"), m)
	return respond(c, d, err)
}

func (h *Handler) RemoveMedication(c echo.Context) error {
	i, err := indexParam(c)
	if err != nil {
		return err
	}
	d, err := h.svc.RemoveMedication(reqCtx(c), c.Param("id"), i)
	return respond(c, d, err)
}

// -- Review --

func (h *Handler) GetBundle(c echo.Context) error {
	b, err := h.svc.Bundle(reqCtx(c), c.Param("id"))
	return respond(c, b, err)
}

func (h *Handler) Submit(c echo.Context) error {
	sub, err := h.svc.Submit(reqCtx(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sub)
}
