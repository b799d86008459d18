package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	syncapp "github.com/crmbridge/backend/internal/application/sync"
	"github.com/crmbridge/backend/internal/interfaces/http/dto"
)

// BaseHandler provides the response helpers shared by all handlers.
type BaseHandler struct{}

// Success sends a 200 envelope carrying data.
func (BaseHandler) Success(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(message, data))
}

// Deals sends a 200 envelope carrying created deals.
func (BaseHandler) Deals(c *gin.Context, message string, deals any) {
	c.JSON(http.StatusOK, dto.NewDealsResponse(message, deals))
}

// BadRequest sends a 400 envelope.
func (BaseHandler) BadRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(message, err))
}

// NotFound sends a 404 envelope.
func (BaseHandler) NotFound(c *gin.Context, message string, err error) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse(message, err))
}

// Conflict sends a 409 envelope.
func (BaseHandler) Conflict(c *gin.Context, message string, err error) {
	c.JSON(http.StatusConflict, dto.NewErrorResponse(message, err))
}

// ServerError sends a 500 envelope.
func (BaseHandler) ServerError(c *gin.Context, message string, err error) {
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(message, err))
}

// syncError maps sync failures to responses. A missing credential set
// means the portal link was never configured.
func (b BaseHandler) syncError(c *gin.Context, err error) {
	if errors.Is(err, syncapp.ErrNotInitialized) {
		b.Conflict(c, "Система не настроена: выполните инициализацию через /init", err)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		b.ServerError(c, "Превышено время ожидания ответа от Bitrix24", err)
		return
	}
	b.ServerError(c, "Ошибка при синхронизации с Bitrix24", err)
}
