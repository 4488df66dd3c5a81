package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/study-review-server/internal/dashboard"
	"github.com/study-review-server/internal/domain"
	"github.com/study-review-server/internal/registry"
)

// handleListStudies serves one page of studies filtered per the query.
func (s *Server) handleListStudies(c *gin.Context) {
	page, perPage, err := s.parsePaging(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	filters, err := parseFilters(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.service.ListStudies(c.Request.Context(), filters.QueryParams(page, perPage))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetStudy(c *gin.Context) {
	study, err := s.service.GetStudy(c.Request.Context(), c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, study)
}

func (s *Server) handleUpdateStudy(c *gin.Context) {
	var req domain.UpdateProcessingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("body", "invalid update payload", err.Error()))
		return
	}
	study, err := s.service.UpdateStudy(c.Request.Context(), c.Param("uid"), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, study)
}

func (s *Server) handleGetPathologies(c *gin.Context) {
	states, err := s.service.StudyPathologies(c.Request.Context(), c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pathologies": states})
}

func (s *Server) handleDecisionProgress(c *gin.Context) {
	allDecided, label, err := s.service.DecisionProgress(c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"all_decided":     allDecided,
		"diagnosis_label": label,
	})
}

type decideRequest struct {
	Action domain.DecisionAction `json:"action" binding:"required"`
}

func (s *Server) handleDecide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("action", "invalid decision payload", err.Error()))
		return
	}
	states, err := s.service.Decide(c.Request.Context(), c.Param("uid"), c.Param("key"), req.Action)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pathologies": states})
}

func (s *Server) handleBeginCorrection(c *gin.Context) {
	states, err := s.service.BeginCorrection(c.Request.Context(), c.Param("uid"), c.Param("key"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pathologies": states})
}

type correctionRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSaveCorrection(c *gin.Context) {
	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("text", "invalid correction payload", err.Error()))
		return
	}
	states, err := s.service.SaveCorrection(c.Request.Context(), c.Param("uid"), c.Param("key"), req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pathologies": states})
}

func (s *Server) handleCancelCorrection(c *gin.Context) {
	states, err := s.service.CancelCorrection(c.Request.Context(), c.Param("uid"), c.Param("key"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pathologies": states})
}

func (s *Server) handleSubmitDecisions(c *gin.Context) {
	uid := c.Param("uid")
	if err := s.service.SubmitDecisions(c.Request.Context(), uid); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submitted": true, "study_uid": uid})
}

func (s *Server) handleDailyCounts(c *gin.Context) {
	studies, err := s.analyticsStudies(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"daily_counts": s.engine.DailyCounts(studies)})
}

func (s *Server) handlePathologyFrequency(c *gin.Context) {
	studies, err := s.analyticsStudies(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pathology_frequency": s.engine.PathologyFrequency(studies)})
}

func (s *Server) handleStatusRatio(c *gin.Context) {
	studies, err := s.analyticsStudies(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status_ratio": s.engine.StatusRatio(studies)})
}

func (s *Server) handleSummary(c *gin.Context) {
	studies, err := s.analyticsStudies(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.Summarize(studies))
}

func (s *Server) handleGetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"selected": s.selection.List(),
		"count":    s.selection.Len(),
	})
}

func (s *Server) handleSelect(c *gin.Context) {
	added := s.selection.Add(c.Param("uid"))
	c.JSON(http.StatusOK, gin.H{"added": added, "count": s.selection.Len()})
}

func (s *Server) handleDeselect(c *gin.Context) {
	removed := s.selection.Remove(c.Param("uid"))
	c.JSON(http.StatusOK, gin.H{"removed": removed, "count": s.selection.Len()})
}

func (s *Server) handleClearSelection(c *gin.Context) {
	s.selection.Clear()
	c.JSON(http.StatusOK, gin.H{"count": 0})
}

func (s *Server) handleGenerateReport(c *gin.Context) {
	uids, err := s.generator.Generate(c.Request.Context(), s.selection)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generated": true, "study_uids": uids})
}

func (s *Server) handlePathologyReference(c *gin.Context) {
	options := registry.DisplayOptions()
	out := make([]gin.H, 0, len(options))
	for _, p := range options {
		out = append(out, gin.H{
			"key":          p.Key,
			"display_name": p.DisplayName,
			"category":     p.Category,
			"urgency":      p.Urgency,
			"physicians":   p.RecommendedPhysicians,
			"colors":       p.Colors,
		})
	}
	c.JSON(http.StatusOK, gin.H{"pathologies": out})
}

func (s *Server) handlePhysicianReference(c *gin.Context) {
	keys := registry.PhysicianKeys()
	out := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		out = append(out, gin.H{
			"key":          key,
			"display_name": registry.PhysicianDisplayName(key),
			"badge_class":  registry.PhysicianBadgeClass(key),
		})
	}
	c.JSON(http.StatusOK, gin.H{"physicians": out})
}

func (s *Server) analyticsStudies(c *gin.Context) ([]domain.Study, error) {
	return s.service.StudiesForAnalytics(c.Request.Context(), s.config.Dashboard.AnalyticsFetchLimit)
}

// parsePaging reads page and per_page, enforcing the accepted page sizes.
func (s *Server) parsePaging(c *gin.Context) (int, int, error) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, domain.NewValidationError("page", "must be a positive integer", raw)
		}
		page = n
	}

	perPage := s.config.Dashboard.DefaultPerPage
	if perPage == 0 {
		perPage = dashboard.DefaultPerPage
	}
	if raw := c.Query("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.NewValidationError("per_page", "must be an integer", raw)
		}
		if !dashboard.ValidPerPage(n) {
			return 0, 0, domain.NewValidationError("per_page", "not an accepted page size", raw)
		}
		perPage = n
	}
	return page, perPage, nil
}

// parseFilters builds the filter record from query parameters. Absent
// parameters leave the corresponding dimension unfiltered.
func parseFilters(c *gin.Context) (dashboard.Filters, error) {
	f := dashboard.Filters{
		Search:      c.Query("search"),
		PatientName: c.Query("patient_name"),
	}

	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, domain.NewValidationError("date", "expected YYYY-MM-DD", raw)
		}
		f.Date = &d
	}
	if raw := c.Query("time_from"); raw != "" {
		t, err := dashboard.ParseTimeOfDay(raw)
		if err != nil {
			return f, err
		}
		f.TimeFrom = &t
	}
	if raw := c.Query("time_to"); raw != "" {
		t, err := dashboard.ParseTimeOfDay(raw)
		if err != nil {
			return f, err
		}
		f.TimeTo = &t
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.StudyStatus(raw)
		switch status {
		case domain.StudyStatusCompleted, domain.StudyStatusProcessing,
			domain.StudyStatusProcessingError, domain.StudyStatusDataError:
			f.Status = &status
		default:
			return f, domain.NewValidationError("status", "unknown status", raw)
		}
	}
	if keys := c.QueryArray("pathology_keys"); len(keys) > 0 {
		f.PathologyKeys = keys
	}
	return f, nil
}

// respondError maps service errors onto HTTP statuses with a uniform
// error body.
func (s *Server) respondError(c *gin.Context, err error) {
	code := domain.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case domain.ErrValidation, domain.ErrInvalidInput:
		status = http.StatusBadRequest
	case domain.ErrNotFound:
		status = http.StatusNotFound
	case domain.ErrUnknownPathology:
		status = http.StatusUnprocessableEntity
	case domain.ErrSubmitInFlight:
		status = http.StatusConflict
	case domain.ErrExternalAPI:
		status = http.StatusBadGateway
	}

	s.logger.WithFields(map[string]interface{}{
		"request_id": c.GetString("request_id"),
		"code":       code,
		"status":     status,
		"error":      err.Error(),
	}).Warn("Request failed")

	c.JSON(status, gin.H{
		"error": gin.H{
			"code":       code,
			"message":    err.Error(),
			"retryable":  domain.IsRetryable(err),
			"request_id": c.GetString("request_id"),
		},
	})
}
