package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/crmbridge/backend/internal/application/sync"
)

// DealHandler creates price request deals from a selected product set.
type DealHandler struct {
	BaseHandler
	deals *syncapp.DealService
	log   *zap.Logger
}

// NewDealHandler creates the deal handler.
func NewDealHandler(deals *syncapp.DealService, log *zap.Logger) *DealHandler {
	return &DealHandler{deals: deals, log: log.Named("deal_handler")}
}

// RegisterRoutes registers the deal creation route.
func (h *DealHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/create_deals", h.CreateDeals)
}

// CreateDeals groups the submitted products by supplier and price
// request flag and creates one deal per group.
func (h *DealHandler) CreateDeals(c *gin.Context) {
	var products []syncapp.DealProduct
	if err := c.ShouldBindJSON(&products); err != nil {
		h.BadRequest(c, "Некорректный запрос: ожидается массив товаров", err)
		return
	}
	if len(products) == 0 {
		h.BadRequest(c, "Не выбраны товары для создания сделок", nil)
		return
	}

	created, err := h.deals.Create(c.Request.Context(), products)
	if err != nil {
		h.log.Error("deal creation failed", zap.Error(err))
		h.syncError(c, err)
		return
	}
	h.Deals(c, "Сделки успешно созданы", created)
}
