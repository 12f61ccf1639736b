package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-outreach-go/internal/templates"
)

// ListTemplates returns the built-in templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	kinds := templates.Kinds()
	infos := make([]TemplateInfo, 0, len(kinds))
	for _, k := range kinds {
		infos = append(infos, TemplateInfo{Name: k.String(), Followup: k.IsFollowup()})
	}
	c.JSON(http.StatusOK, infos)
}

// PreviewTemplate renders a template with sample data. Query parameters
// override the sample values.
func (h *Handlers) PreviewTemplate(c *gin.Context) {
	kind, err := templates.ParseKind(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	data := templates.PreviewData()
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}

	rendered, err := h.renderer.Render(kind, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TemplatePreview{Name: kind.String(), Subject: rendered.Subject, Body: rendered.Body})
}
