package handler

import (
	"net/http"

	"github.com/GoPolymarket/unifygate/internal/catalog"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

func (h *CatalogHandler) List(c *gin.Context) {
	category := c.Query("category")
	if category != "" && !catalog.IsCategory(category) {
		c.Error(apperrors.NewInvalidRequest("Unknown category"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"endpoints":  h.catalog.List(category),
		"categories": catalog.Categories,
	})
}
