package backup

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practica/practica/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin"))
	g.POST("/backup", h.Create)
	g.GET("/backup", h.List)
	g.POST("/backup/restore", h.Restore)
}

func (h *Handler) Create(c echo.Context) error {
	name, err := h.svc.Backup(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"file": name})
}

func (h *Handler) List(c echo.Context) error {
	names, err := h.svc.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"files": names})
}

type restoreRequest struct {
	File string `json:"file"`
}

func (h *Handler) Restore(c echo.Context) error {
	var req restoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.File == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if err := h.svc.Restore(c.Request().Context(), req.File); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
