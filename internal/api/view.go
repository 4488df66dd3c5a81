package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/study-review-server/internal/dashboard"
	"github.com/study-review-server/internal/domain"
)

// View routes expose the shared list-view state: draft and applied
// filters, sort, and pagination. The dashboard edits the draft freely;
// results only change on apply.

func (s *Server) setupViewRoutes(v1 *gin.RouterGroup) {
	view := v1.Group("/view")
	{
		view.GET("", s.handleGetView)
		view.PUT("/filters", s.handleSetDraftFilters)
		view.POST("/filters/apply", s.handleApplyFilters)
		view.POST("/filters/reset", s.handleResetFilters)
		view.POST("/sort", s.handleToggleSort)
		view.PUT("/pagination", s.handleSetPagination)
		view.GET("/studies", s.handleViewStudies)
	}
}

func (s *Server) handleGetView(c *gin.Context) {
	c.JSON(http.StatusOK, s.viewSnapshot())
}

func (s *Server) handleSetDraftFilters(c *gin.Context) {
	var draft dashboard.Filters
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.respondError(c, domain.NewValidationError("filters", "invalid filter payload", err.Error()))
		return
	}
	s.view.SetDraft(draft)
	c.JSON(http.StatusOK, s.viewSnapshot())
}

func (s *Server) handleApplyFilters(c *gin.Context) {
	s.view.Apply()
	c.JSON(http.StatusOK, s.viewSnapshot())
}

func (s *Server) handleResetFilters(c *gin.Context) {
	s.view.Reset()
	c.JSON(http.StatusOK, s.viewSnapshot())
}

type sortRequest struct {
	Field dashboard.SortField `json:"field" binding:"required"`
}

func (s *Server) handleToggleSort(c *gin.Context) {
	var req sortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("field", "invalid sort payload", err.Error()))
		return
	}
	switch req.Field {
	case dashboard.SortByDate, dashboard.SortByUID, dashboard.SortByPatientID,
		dashboard.SortByStatus, dashboard.SortByDescriptionStatus:
	default:
		s.respondError(c, domain.NewValidationError("field", "unknown sort field", string(req.Field)))
		return
	}
	s.view.ToggleSort(req.Field)
	c.JSON(http.StatusOK, s.viewSnapshot())
}

type paginationRequest struct {
	Page     *int                `json:"page,omitempty"`
	PerPage  *int                `json:"per_page,omitempty"`
	ViewMode *dashboard.ViewMode `json:"view_mode,omitempty"`
}

func (s *Server) handleSetPagination(c *gin.Context) {
	var req paginationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("pagination", "invalid pagination payload", err.Error()))
		return
	}
	if req.PerPage != nil {
		if err := s.view.SetPerPage(*req.PerPage); err != nil {
			s.respondError(c, err)
			return
		}
	}
	if req.Page != nil {
		s.view.SetPage(*req.Page)
	}
	if req.ViewMode != nil {
		switch *req.ViewMode {
		case dashboard.ViewFull, dashboard.ViewCompact:
			s.view.SetViewMode(*req.ViewMode)
		default:
			s.respondError(c, domain.NewValidationError("view_mode", "unknown view mode", string(*req.ViewMode)))
			return
		}
	}
	c.JSON(http.StatusOK, s.viewSnapshot())
}

// handleViewStudies serves the page described by the applied view state.
// Sorting happens in-memory over the fetched page; the window metadata
// comes from the upstream total.
func (s *Server) handleViewStudies(c *gin.Context) {
	page, err := s.service.ListStudies(c.Request.Context(), s.view.QueryParams())
	if err != nil {
		s.respondError(c, err)
		return
	}

	sorted := dashboard.SortStudies(page.Items, s.view.Sort())
	window := s.view.Pagination().Window(page.Total)

	c.JSON(http.StatusOK, gin.H{
		"items":  sorted,
		"window": window,
		"view":   s.viewSnapshot(),
	})
}

func (s *Server) viewSnapshot() gin.H {
	return gin.H{
		"draft_filters":       s.view.Draft(),
		"applied_filters":     s.view.Applied(),
		"has_filters_changed": s.view.HasFiltersChanged(),
		"sort":                s.view.Sort(),
		"pagination":          s.view.Pagination(),
	}
}
