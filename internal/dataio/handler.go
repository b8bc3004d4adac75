package dataio

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/claimdesk/claimdesk/internal/domain/claims"
	"github.com/claimdesk/claimdesk/internal/platform/auth"
)

// Handler exposes the bulk import/export surface. All routes are staff-only.
type Handler struct {
	importer *Importer
	exporter *Exporter
	svc      *claims.Service
}

func NewHandler(importer *Importer, exporter *Exporter, svc *claims.Service) *Handler {
	return &Handler{importer: importer, exporter: exporter, svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	data := api.Group("/data", auth.RequireRole("staff"))
	data.GET("/stats", h.Stats)
	data.POST("/import", h.Import)
	data.GET("/export", h.Export)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxFileSize+1))
}

func (h *Handler) Import(c echo.Context) error {
	format, err := ParseFormat(c.FormValue("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	mode, err := ParseMode(c.FormValue("mode"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	claimsFH, err := c.FormFile("claims_file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "claims_file is required")
	}
	claimsData, err := readUpload(claimsFH)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var detailsData []byte
	if detailsFH, err := c.FormFile("details_file"); err == nil {
		if detailsData, err = readUpload(detailsFH); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	res, err := h.importer.Run(c.Request().Context(), claimsData, detailsData, format, mode)
	if err != nil {
		if errors.Is(err, ErrImportAborted) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		// File-level rejection: empty, too large, bad encoding, bad
		// structure, missing columns.
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Export(c echo.Context) error {
	format, err := ParseFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	if format == FormatJSON {
		// JSON export always carries both claims and details.
		out, err := h.exporter.ExportJSON(ctx)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition,
			`attachment; filename="claims_export.json"`)
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, out)
	}

	scope := c.QueryParam("type")
	if scope == "" {
		scope = "claims"
	}

	var out []byte
	var filename string
	switch scope {
	case "claims":
		out, err = h.exporter.ExportClaimsCSV(ctx)
		filename = "claims_export.csv"
	case "details":
		out, err = h.exporter.ExportDetailsCSV(ctx)
		filename = "claim_details_export.csv"
	default:
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unsupported export type: %s (expected claims or details)", scope))
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "text/csv", out)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.DataStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
