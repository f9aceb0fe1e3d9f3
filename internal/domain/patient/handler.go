package patient

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients")
	g.GET("", h.Search)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Archive)
}

type patientRequest struct {
	Name       string  `json:"name" validate:"required"`
	GivenName  string  `json:"given_name" validate:"required"`
	ExternalID *string `json:"external_id"`
	DOB        string  `json:"dob" validate:"required"`
	Sex        string  `json:"sex" validate:"required,oneof=male female"`
	FacilityID *string `json:"facility_id"`
}

func (req *patientRequest) toInput() (Input, error) {
	in := Input{
		Name:       req.Name,
		GivenName:  req.GivenName,
		ExternalID: req.ExternalID,
		DOB:        req.DOB,
		Sex:        req.Sex,
	}
	if req.FacilityID != nil && *req.FacilityID != "" {
		id, err := uuid.Parse(*req.FacilityID)
		if err != nil {
			return in, apperr.New(apperr.KindValidation, "invalid facility_id")
		}
		in.FacilityID = &id
	}
	return in, nil
}

func (h *Handler) Create(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid patient payload", err)
	}
	in, err := req.toInput()
	if err != nil {
		return err
	}

	result, err := h.svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

func (h *Handler) Get(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid patient id")
	}
	detail, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) Update(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid patient id")
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid patient payload", err)
	}
	in, err := req.toInput()
	if err != nil {
		return err
	}

	p, err := h.svc.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Archive(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid patient id")
	}
	if err := h.svc.Archive(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Search(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	f := Filters{
		Query:      c.QueryParam("q"),
		Name:       c.QueryParam("name"),
		GivenName:  c.QueryParam("given_name"),
		ExternalID: c.QueryParam("external_id"),
		Sex:        c.QueryParam("sex"),
	}
	patients, err := h.svc.Search(c.Request().Context(), actor, f)
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, patients)
}
