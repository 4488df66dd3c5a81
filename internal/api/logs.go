package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/study-review-server/internal/actionlog"
	"github.com/study-review-server/internal/dashboard"
	"github.com/study-review-server/internal/domain"
)

// setupLogRoutes exposes the review action trail.
func (s *Server) setupLogRoutes(v1 *gin.RouterGroup) {
	logs := v1.Group("/logs")
	{
		logs.GET("", s.handleActionLog)
		logs.GET("/actions", s.handleActionLogActions)
	}
}

// handleActionLog serves one filtered, sorted page of the action trail.
func (s *Server) handleActionLog(c *gin.Context) {
	page, perPage, err := s.parsePaging(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	filter, err := parseLogFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	field := actionlog.SortByTimestamp
	if raw := c.Query("sort_by"); raw != "" {
		switch actionlog.SortField(raw) {
		case actionlog.SortByTimestamp, actionlog.SortByAction, actionlog.SortByStudyUID:
			field = actionlog.SortField(raw)
		default:
			s.respondError(c, domain.NewValidationError("sort_by", "unknown sort field", raw))
			return
		}
	}
	dir := dashboard.Descending
	if raw := c.Query("direction"); raw == string(dashboard.Ascending) {
		dir = dashboard.Ascending
	}

	p := dashboard.Pagination{Page: page, PerPage: perPage}
	entries, window := s.service.ActionTrail().Query(filter, field, dir, p)
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"window":  window,
	})
}

// handleActionLogActions lists the distinct actions present in the trail,
// the option set for the action filter.
func (s *Server) handleActionLogActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": s.service.ActionTrail().Actions()})
}

// parseLogFilter reads the trail filter dimensions. date_to is inclusive,
// it covers the whole named day.
func parseLogFilter(c *gin.Context) (actionlog.Filter, error) {
	f := actionlog.Filter{
		Action:   c.Query("action"),
		StudyUID: c.Query("study_uid"),
	}
	if raw := c.Query("date_from"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, domain.NewValidationError("date_from", "expected YYYY-MM-DD", raw)
		}
		f.DateFrom = &d
	}
	if raw := c.Query("date_to"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, domain.NewValidationError("date_to", "expected YYYY-MM-DD", raw)
		}
		end := d.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &end
	}
	return f, nil
}
