package user

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

// RegisterPublicRoutes mounts the endpoints reachable without a token.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
}

// RegisterRoutes mounts the authenticated endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/auth/me", h.Me)

	admin := api.Group("/users", auth.RequireAdmin())
	admin.GET("", h.List)
	admin.GET("/pending", h.ListPending)
	admin.PUT("/:id/status", h.SetStatus)
	admin.PUT("/:id/role", h.SetRole)
	admin.PUT("/:id/facility", h.SetFacility)
}

type registerRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	FamilyName string `json:"family_name" validate:"required"`
	GivenName  string `json:"given_name" validate:"required"`
	FacilityID string `json:"facility_id" validate:"required,uuid4|uuid"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid registration payload", err)
	}
	facilityID, err := uuid.Parse(req.FacilityID)
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid facility_id")
	}

	u, err := h.svc.Register(c.Request().Context(), RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FamilyName: req.FamilyName,
		GivenName:  req.GivenName,
		FacilityID: facilityID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "email and password are required", err)
	}

	token, u, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

func (h *Handler) Me(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	u, err := h.svc.Me(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) List(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	users, err := h.svc.List(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) ListPending(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	users, err := h.svc.ListPending(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

type statusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid user id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "is_active is required", err)
	}

	u, err := h.svc.SetActive(c.Request().Context(), actor, id, *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) SetRole(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid user id")
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.KindValidation, "role is required", err)
	}

	u, err := h.svc.SetRole(c.Request().Context(), actor, id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type facilityRequest struct {
	FacilityID *string `json:"facility_id"`
}

func (h *Handler) SetFacility(c echo.Context) error {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid user id")
	}
	var req facilityRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	var facilityID *uuid.UUID
	if req.FacilityID != nil && *req.FacilityID != "" {
		parsed, err := uuid.Parse(*req.FacilityID)
		if err != nil {
			return apperr.New(apperr.KindValidation, "invalid facility_id")
		}
		facilityID = &parsed
	}

	u, err := h.svc.SetFacility(c.Request().Context(), actor, id, facilityID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
