package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/engine"
	"github.com/andresuchdata/replenish-go/internal/export"
	"github.com/andresuchdata/replenish-go/internal/ingest"
	"github.com/andresuchdata/replenish-go/internal/service"
)

const maxUploadBytes = 32 << 20

type PlanHandler struct {
	service *service.PlanService
}

func NewPlanHandler(service *service.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

// PlanRequest is the body of an ad-hoc plan request.
type PlanRequest struct {
	Tenant      string             `json:"tenant"`
	DatasetType string             `json:"dataset_type"`
	Version     string             `json:"version"`
	Records     []domain.SkuRecord `json:"records"`
	Policy      json.RawMessage    `json:"policy"`
}

// decisionView narrows and orders decisions according to query parameters.
type decisionView struct {
	sort        string
	urgencies   map[domain.Urgency]bool
	criticality map[domain.Criticality]bool
	limit       int
}

func parseView(c *gin.Context) (decisionView, error) {
	v := decisionView{sort: strings.ToLower(strings.TrimSpace(c.DefaultQuery("sort", "urgency")))}
	if v.sort != "urgency" && v.sort != "priority" && v.sort != "input" {
		return v, fmt.Errorf("unknown sort %q", v.sort)
	}

	for _, label := range queryList(c, "urgency") {
		u, ok := domain.ParseUrgency(label)
		if !ok {
			return v, fmt.Errorf("unknown urgency %q", label)
		}
		if v.urgencies == nil {
			v.urgencies = make(map[domain.Urgency]bool)
		}
		v.urgencies[u] = true
	}

	for _, label := range queryList(c, "criticality") {
		crit, ok := domain.ParseCriticality(label)
		if !ok {
			return v, fmt.Errorf("unknown criticality %q", label)
		}
		if v.criticality == nil {
			v.criticality = make(map[domain.Criticality]bool)
		}
		v.criticality[crit] = true
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return v, fmt.Errorf("invalid limit %q", raw)
		}
		v.limit = n
	}
	return v, nil
}

func (v decisionView) apply(decisions []domain.Decision) []domain.Decision {
	switch v.sort {
	case "urgency":
		decisions = engine.SortByUrgency(decisions)
	case "priority":
		decisions = engine.SortByPriority(decisions)
	}

	if v.urgencies != nil || v.criticality != nil {
		filtered := make([]domain.Decision, 0, len(decisions))
		for _, d := range decisions {
			if v.urgencies != nil && !v.urgencies[d.Timeline.Urgency] {
				continue
			}
			if v.criticality != nil && !v.criticality[d.Priority.Criticality] {
				continue
			}
			filtered = append(filtered, d)
		}
		decisions = filtered
	}

	if v.limit > 0 && len(decisions) > v.limit {
		decisions = decisions[:v.limit]
	}
	return decisions
}

// queryList supports both ?key=a&key=b and ?key=a,b.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *PlanHandler) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.DefaultPolicy())
}

func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	view, err := parseView(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.service.MergePolicy(req.Policy)
	if err != nil {
		h.fail(c, err)
		return
	}

	snap := domain.Snapshot{
		Tenant:      req.Tenant,
		DatasetType: req.DatasetType,
		Version:     req.Version,
		Records:     req.Records,
	}
	result, err := h.service.Plan(c.Request.Context(), snap, policy)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.respond(c, view, result)
}

func (h *PlanHandler) GetSnapshotPlan(c *gin.Context) {
	view, err := parseView(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.queryPolicy(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.service.PlanActive(c.Request.Context(), c.Param("tenant"), c.Param("dataset"), policy, queryList(c, "supplier")...)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.respond(c, view, result)
}

func (h *PlanHandler) GetSnapshotSummary(c *gin.Context) {
	policy, err := h.queryPolicy(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	summary, report, err := h.service.Summary(c.Request.Context(), c.Param("tenant"), c.Param("dataset"), policy, queryList(c, "supplier")...)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"report":  report,
	})
}

func (h *PlanHandler) ListVersions(c *gin.Context) {
	versions, err := h.service.Versions(c.Request.Context(), c.Param("tenant"), c.Param("dataset"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": versions})
}

// UploadSnapshot imports a CSV export sent as multipart field "file".
// ?decimal=dot|comma fixes the decimal separator.
func (h *PlanHandler) UploadSnapshot(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open upload"})
		return
	}
	defer file.Close()

	mark, err := ingest.ParseDecimalMark(c.Query("decimal"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, stats, err := ingest.LoadSnapshot(file, c.Param("tenant"), c.Param("dataset"), ingest.WithDecimalMark(mark))
	if err != nil {
		h.fail(c, err)
		return
	}

	activate := c.DefaultQuery("activate", "true") != "false"
	id, err := h.service.Import(c.Request.Context(), snap, activate)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      id,
		"version": snap.Version,
		"active":  activate,
		"stats":   stats,
	})
}

// queryPolicy applies the few policy knobs exposed as query parameters.
func (h *PlanHandler) queryPolicy(c *gin.Context) (engine.Policy, error) {
	p := h.service.DefaultPolicy()
	if scheme := c.Query("scheme"); scheme != "" {
		p.UrgencyScheme = engine.UrgencyScheme(strings.ToLower(scheme))
	}
	if raw := c.Query("lead_time_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("%w: lead_time_days %q", engine.ErrInvalidPolicy, raw)
		}
		p.DefaultLeadTimeDays = n
	}
	if raw := c.Query("target_coverage_months"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, fmt.Errorf("%w: target_coverage_months %q", engine.ErrInvalidPolicy, raw)
		}
		p.TargetCoverageMonths = f
	}
	return p, nil
}

func (h *PlanHandler) respond(c *gin.Context, view decisionView, result *engine.Result) {
	decisions := view.apply(result.Decisions)

	if strings.EqualFold(c.Query("format"), "csv") {
		locale, err := export.ParseLocale(c.Query("locale"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="plan.csv"`)
		c.Status(http.StatusOK)
		if err := export.WriteDecisions(c.Writer, decisions, locale); err != nil {
			log.Error().Err(err).Msg("plan: csv export failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   decisions,
		"report": result.Report,
	})
}

func (h *PlanHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidPolicy), errors.Is(err, ingest.ErrMissingColumn):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSnapshotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoRepository):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("plan request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
