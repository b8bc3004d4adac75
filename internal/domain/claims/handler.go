package claims

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/claimdesk/claimdesk/internal/platform/auth"
	"github.com/claimdesk/claimdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Review endpoints – any staff
	review := api.Group("", auth.RequireRole("staff"))
	review.GET("/claims", h.ListClaims)
	review.GET("/claims/:id", h.GetClaim)
	review.POST("/claims/:id/flag", h.FlagClaim)
	review.POST("/claims/:id/notes", h.AddNote)
	review.GET("/dashboard", h.Dashboard)

	// Administrative edits – admin only
	admin := api.Group("", auth.RequireRole("admin"))
	admin.PUT("/claims/:id", h.UpdateClaim)
	admin.DELETE("/claims/:id", h.DeleteClaim)
}

func claimIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	return id, nil
}

func (h *Handler) ListClaims(c echo.Context) error {
	p := pagination.FromContext(c)
	list, total, err := h.svc.List(c.Request().Context(),
		c.QueryParam("search"), c.QueryParam("status"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(list, total, p.Limit, p.Offset))
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := claimIDParam(c)
	if err != nil {
		return err
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	view, err := h.svc.Get(c.Request().Context(), id, userID)
	if err == ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

type flagRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) FlagClaim(c echo.Context) error {
	id, err := claimIDParam(c)
	if err != nil {
		return err
	}

	var req flagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	created, err := h.svc.Flag(c.Request().Context(), id, userID, req.Reason)
	if err == ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, map[string]interface{}{
		"claim_id": id,
		"created":  created,
	})
}

type noteRequest struct {
	Body string `json:"body"`
}

func (h *Handler) AddNote(c echo.Context) error {
	id, err := claimIDParam(c)
	if err != nil {
		return err
	}

	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	note, err := h.svc.AddNote(c.Request().Context(), id, userID, req.Body)
	if err == ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, note)
}

func (h *Handler) UpdateClaim(c echo.Context) error {
	id, err := claimIDParam(c)
	if err != nil {
		return err
	}

	var claim Claim
	if err := c.Bind(&claim); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	claim.ID = id

	err = h.svc.Update(c.Request().Context(), &claim)
	if err == ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) DeleteClaim(c echo.Context) error {
	id, err := claimIDParam(c)
	if err != nil {
		return err
	}

	err = h.svc.Delete(c.Request().Context(), id)
	if err == ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dashboard(c echo.Context) error {
	stats, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
