package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/crmbridge/backend/internal/application/sync"
)

// DataHandler serves the legacy-to-CRM identifier link tables used by
// the frontend to cross reference entities.
type DataHandler struct {
	BaseHandler
	links *syncapp.DataLinkService
	log   *zap.Logger
}

// NewDataHandler creates the data handler.
func NewDataHandler(links *syncapp.DataLinkService, log *zap.Logger) *DataHandler {
	return &DataHandler{links: links, log: log.Named("data_handler")}
}

// RegisterRoutes registers the link table routes.
func (h *DataHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/get_all_products/", h.Products)
	rg.GET("/get_all_products", h.Products)
	rg.GET("/get_all_product_providers/", h.Suppliers)
	rg.GET("/get_all_product_providers", h.Suppliers)
}

// Products returns the product link table. An empty table is treated
// as an error so the frontend does not render a blank catalog.
func (h *DataHandler) Products(c *gin.Context) {
	rows, err := h.links.Products(c.Request.Context())
	if err != nil {
		h.log.Error("product links failed", zap.Error(err))
		h.syncError(c, err)
		return
	}
	if len(rows) == 0 {
		h.ServerError(c, "Не найдено ни одного сопоставленного товара", nil)
		return
	}
	h.Success(c, "Список товаров получен", rows)
}

// Suppliers returns the supplier link table.
func (h *DataHandler) Suppliers(c *gin.Context) {
	rows, err := h.links.Suppliers(c.Request.Context())
	if err != nil {
		h.log.Error("supplier links failed", zap.Error(err))
		h.syncError(c, err)
		return
	}
	if len(rows) == 0 {
		h.ServerError(c, "Не найдено ни одного сопоставленного поставщика", nil)
		return
	}
	h.Success(c, "Список поставщиков получен", rows)
}
