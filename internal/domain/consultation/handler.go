package consultation

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/forms"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	types := api.Group("/consultation-types")
	types.GET("", h.ListTypes)
	types.GET("/:slug/template", h.GetActiveTemplate)
	types.POST("/:slug/validate", h.ValidateSubmission)

	admin := api.Group("/consultation-types", auth.RequireAdmin())
	admin.POST("", h.CreateType)
	admin.PUT("/:id", h.UpdateType)
	admin.DELETE("/:id", h.DeleteType)
	admin.GET("/:id/templates", h.ListTemplates)
	admin.POST("/:id/templates", h.CreateTemplate)

	templates := api.Group("/templates", auth.RequireAdmin())
	templates.PUT("/:id/activate", h.ActivateTemplate)
	templates.DELETE("/:id", h.DeleteTemplate)

	api.PUT("/patients/:id/sections/:type_id", h.SaveSection)
}

// -- Types --

func (h *Handler) ListTypes(c echo.Context) error {
	types, err := h.svc.ListTypes(c.Request().Context())
	if err != nil {
		return err
	}
	if types == nil {
		types = []*Type{}
	}
	return c.JSON(http.StatusOK, types)
}

type typeRequest struct {
	Slug  string `json:"slug" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Order int    `json:"order"`
}

func (h *Handler) CreateType(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req typeRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "slug and name are required", err)
	}

	t, err := h.svc.CreateType(c.Request().Context(), actor, req.Slug, req.Name, req.Order)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

type typeUpdateRequest struct {
	Name  string `json:"name" validate:"required"`
	Order int    `json:"order"`
}

func (h *Handler) UpdateType(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid consultation type id")
	}
	var req typeUpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "name is required", err)
	}

	t, err := h.svc.UpdateType(c.Request().Context(), actor, id, req.Name, req.Order)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteType(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid consultation type id")
	}
	if err := h.svc.DeleteType(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Templates --

type templateRequest struct {
	Version   string          `json:"version" validate:"required"`
	Structure forms.Structure `json:"structure"`
	Template  string          `json:"template"`
	Activate  bool            `json:"activate"`
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	typeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid consultation type id")
	}
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "version is required", err)
	}

	t, err := h.svc.CreateTemplate(c.Request().Context(), actor, typeID, req.Version, req.Structure, req.Template, req.Activate)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	typeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid consultation type id")
	}
	templates, err := h.svc.ListTemplates(c.Request().Context(), actor, typeID)
	if err != nil {
		return err
	}
	if templates == nil {
		templates = []*Template{}
	}
	return c.JSON(http.StatusOK, templates)
}

func (h *Handler) GetActiveTemplate(c echo.Context) error {
	t, err := h.svc.GetActiveBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ActivateTemplate(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid template id")
	}
	if err := h.svc.ActivateTemplate(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid template id")
	}
	if err := h.svc.DeleteTemplate(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type validateRequest struct {
	Data map[string]any `json:"data"`
}

func (h *Handler) ValidateSubmission(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.svc.ValidateSubmission(c.Request().Context(), c.Param("slug"), req.Data); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}

// -- Sections --

type sectionRequest struct {
	Data map[string]any `json:"data"`
}

func (h *Handler) SaveSection(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid patient id")
	}
	typeID, err := uuid.Parse(c.Param("type_id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid consultation type id")
	}
	var req sectionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	section, err := h.svc.SaveSection(c.Request().Context(), actor, patientID, typeID, req.Data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, section)
}
