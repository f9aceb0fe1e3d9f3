package facility

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
	g := api.Group("/facilities", auth.RequireAdmin())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

type facilityRequest struct {
	Name string `json:"name" validate:"required"`
	City string `json:"city" validate:"required"`
}

func (h *Handler) Create(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req facilityRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "name and city are required", err)
	}

	f, err := h.svc.Create(c.Request().Context(), actor, req.Name, req.City)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) Get(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid facility id")
	}
	f, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Update(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid facility id")
	}
	var req facilityRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "name and city are required", err)
	}

	f, err := h.svc.Update(c.Request().Context(), actor, id, req.Name, req.City)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Delete(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid facility id")
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	facilities, err := h.svc.List(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, facilities)
}
