package analysis

import (
	"errors"

	"github.com/contextlens/core/internal/middleware"
	"github.com/contextlens/core/internal/models"
	"github.com/contextlens/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ orch *Orchestrator }

func NewHandler(orch *Orchestrator) *Handler { return &Handler{orch: orch} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/analysis")
	g.POST("/quick", h.quick)
	g.POST("/deep", h.deep)
	g.GET("/quota", h.quota)
}

type quickDTO struct {
	ID     string `json:"id"`
	Text   string `json:"text"   binding:"required"`
	Author string `json:"author"`
}

type deepDTO struct {
	ID              string                  `json:"id"`
	Text            string                  `json:"text" binding:"required"`
	Author          string                  `json:"author"`
	Media           models.MediaDescriptors `json:"media"`
	CommentExcerpts []string                `json:"commentExcerpts"`
}

// POST /analysis/quick
func (h *Handler) quick(c *gin.Context) {
	var dto quickDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "text is required")
		return
	}

	verdict, err := h.orch.Quick(c.Request.Context(), QuickRequest{
		ID:     dto.ID,
		Text:   dto.Text,
		Author: dto.Author,
		Scope:  middleware.CallerScope(c),
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			response.QuotaExceeded(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, verdict)
}

// POST /analysis/deep
func (h *Handler) deep(c *gin.Context) {
	var dto deepDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "text is required")
		return
	}

	verdict, err := h.orch.Deep(c.Request.Context(), DeepRequest{
		ID:              dto.ID,
		Text:            dto.Text,
		Author:          dto.Author,
		Media:           dto.Media,
		CommentExcerpts: dto.CommentExcerpts,
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, verdict)
}

// GET /analysis/quota
func (h *Handler) quota(c *gin.Context) {
	status := h.orch.Quota(c.Request.Context(), middleware.CallerScope(c))
	response.OK(c, status)
}
