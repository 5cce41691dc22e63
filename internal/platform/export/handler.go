package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practica/practica/internal/domain/stats"
	"github.com/practica/practica/internal/platform/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc   *Service
	stats *stats.Service
}

func NewHandler(svc *Service, statsSvc *stats.Service) *Handler {
	return &Handler{svc: svc, stats: statsSvc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "billing"))
	g.GET("/patients/:patient_id/statement", h.PatientStatement)
	g.GET("/stats/monthly/export", h.MonthlyStats)
}

func (h *Handler) PatientStatement(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	st, err := h.svc.Statement(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	var buf bytes.Buffer
	switch format(c) {
	case "xlsx":
		if err := WriteStatementXLSX(&buf, st); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return sendFile(c, &buf, xlsxContentType, fmt.Sprintf("statement-%s.xlsx", pid))
	default:
		if err := WriteStatementCSV(&buf, st); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return sendFile(c, &buf, "text/csv", fmt.Sprintf("statement-%s.csv", pid))
	}
}

func (h *Handler) MonthlyStats(c echo.Context) error {
	year, _ := strconv.Atoi(c.QueryParam("year"))
	month, _ := strconv.Atoi(c.QueryParam("month"))
	ms, err := h.stats.Monthly(c.Request().Context(), year, month)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	name := fmt.Sprintf("stats-%04d-%02d", ms.Year, ms.Month)
	var buf bytes.Buffer
	switch format(c) {
	case "xlsx":
		if err := WriteMonthlyXLSX(&buf, ms); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return sendFile(c, &buf, xlsxContentType, name+".xlsx")
	default:
		if err := WriteMonthlyCSV(&buf, ms); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return sendFile(c, &buf, "text/csv", name+".csv")
	}
}

func format(c echo.Context) string {
	if c.QueryParam("format") == "xlsx" {
		return "xlsx"
	}
	return "csv"
}

func sendFile(c echo.Context, buf *bytes.Buffer, contentType, filename string) error {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}
