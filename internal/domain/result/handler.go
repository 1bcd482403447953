package result

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tahkootay/LabTrack/pkg/pagination"
)

type Handler struct {
	svc *Service
	// defaultSubject backs requests that carry no subject_id, the
	// single-user deployment mode.
	defaultSubject uuid.UUID
}

func NewHandler(svc *Service, defaultSubject uuid.UUID) *Handler {
	return &Handler{svc: svc, defaultSubject: defaultSubject}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/results", h.ListObservations)
	api.GET("/results/summary", h.GetSummary)
	api.GET("/results/history/:code", h.GetHistory)
	api.GET("/results/by-label", h.GetHistoryByLabel)
	api.GET("/results/:id", h.GetObservation)
}

func (h *Handler) subject(c echo.Context) (uuid.UUID, error) {
	if s := c.QueryParam("subject_id"); s != "" {
		return uuid.Parse(s)
	}
	return h.defaultSubject, nil
}

func (h *Handler) GetObservation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.GetObservation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "observation not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListObservations(c echo.Context) error {
	pg := pagination.FromContext(c)

	subjectID, err := h.subject(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subject_id")
	}
	f := Filters{
		SubjectID:   &subjectID,
		AnalyteCode: c.QueryParam("analyte"),
		Status:      c.QueryParam("status"),
	}
	if d := c.QueryParam("document_id"); d != "" {
		docID, err := uuid.Parse(d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid document_id")
		}
		f.DocumentID = &docID
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		f.To = &t
	}
	if v := c.QueryParam("out_of_range"); v != "" {
		b := v == "true"
		f.OutOfRange = &b
	}
	if v := c.QueryParam("suspect"); v != "" {
		b := v == "true"
		f.Suspect = &b
	}

	items, total, err := h.svc.SearchObservations(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetHistory(c echo.Context) error {
	subjectID, err := h.subject(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subject_id")
	}
	items, err := h.svc.History(c.Request().Context(), subjectID, c.Param("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if items == nil {
		items = []*Observation{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetHistoryByLabel(c echo.Context) error {
	subjectID, err := h.subject(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subject_id")
	}
	items, err := h.svc.HistoryByLabel(c.Request().Context(), subjectID, c.QueryParam("label"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if items == nil {
		items = []*Observation{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetSummary(c echo.Context) error {
	subjectID, err := h.subject(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subject_id")
	}
	items, err := h.svc.Summary(c.Request().Context(), subjectID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*AnalyteSummary{}
	}
	return c.JSON(http.StatusOK, items)
}
