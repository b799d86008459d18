package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/crmbridge/backend/internal/application/sync"
	"github.com/crmbridge/backend/internal/interfaces/http/dto"
)

// InitHandler exposes the one-time portal link setup endpoint.
type InitHandler struct {
	BaseHandler
	init *syncapp.InitService
	log  *zap.Logger
}

// NewInitHandler creates the init handler.
func NewInitHandler(init *syncapp.InitService, log *zap.Logger) *InitHandler {
	return &InitHandler{init: init, log: log.Named("init_handler")}
}

// RegisterRoutes registers the init route.
func (h *InitHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/init/", h.Init)
	rg.POST("/init", h.Init)
}

// Init stores the portal webhook under freshly generated credentials.
func (h *InitHandler) Init(c *gin.Context) {
	var req dto.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Некорректный запрос: ожидается поле bx_link", err)
		return
	}

	if err := h.init.Setup(c.Request.Context(), req.Webhook); err != nil {
		if errors.Is(err, syncapp.ErrMissingWebhook) {
			h.BadRequest(c, "Не указана ссылка на вебхук Bitrix24", err)
			return
		}
		h.log.Error("init failed", zap.Error(err))
		h.ServerError(c, "Не удалось сохранить настройки подключения", err)
		return
	}

	h.Success(c, "Система готова работать с вашим битриксом!", nil)
}
