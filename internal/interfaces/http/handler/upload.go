package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/crmbridge/backend/internal/application/sync"
	"github.com/crmbridge/backend/internal/domain/reconcile"
	"github.com/crmbridge/backend/internal/infrastructure/recordsource"
	"github.com/crmbridge/backend/internal/interfaces/http/dto"
)

// UploadHandler accepts legacy dataset exports and pushes them through
// the matching sync service.
type UploadHandler struct {
	BaseHandler
	source    *recordsource.Source
	archive   *recordsource.Archive
	products  *syncapp.ProductListService
	suppliers *syncapp.SupplierService
	links     *syncapp.SupplierProductService
	purchase  *syncapp.PurchaseService
	log       *zap.Logger
}

// NewUploadHandler creates an upload handler over the sync services.
func NewUploadHandler(
	source *recordsource.Source,
	archive *recordsource.Archive,
	products *syncapp.ProductListService,
	suppliers *syncapp.SupplierService,
	links *syncapp.SupplierProductService,
	purchase *syncapp.PurchaseService,
	log *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		source:    source,
		archive:   archive,
		products:  products,
		suppliers: suppliers,
		links:     links,
		purchase:  purchase,
		log:       log.Named("upload_handler"),
	}
}

// RegisterRoutes registers the upload routes.
func (h *UploadHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload/:kind", h.Upload)
	rg.GET("/get_processed_data", h.ProcessedPurchase)
	rg.GET("/get_processed_data/", h.ProcessedPurchase)
}

// Upload dispatches the upload to the sync service matching the kind
// segment of the URL.
func (h *UploadHandler) Upload(c *gin.Context) {
	kind, err := reconcile.ParseRecordKind(c.Param("kind"))
	if err != nil {
		h.BadRequest(c, "Неизвестный тип файла", err)
		return
	}

	var req dto.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Некорректный запрос: ожидаются поля filename и base64", err)
		return
	}

	data, err := req.Decode()
	if err != nil {
		h.BadRequest(c, "Не удалось декодировать содержимое файла", err)
		return
	}

	file, err := h.source.Parse(kind, data)
	if err != nil {
		h.log.Warn("upload rejected",
			zap.String("kind", string(kind)), zap.String("filename", req.Filename), zap.Error(err))
		h.BadRequest(c, "Не удалось обработать файл: проверьте заголовки и данные", err)
		return
	}

	h.log.Info("upload accepted",
		zap.String("kind", string(kind)), zap.String("filename", req.Filename))

	switch kind {
	case reconcile.KindPurchase:
		h.uploadPurchase(c, file, data)
	case reconcile.KindRaw:
		h.uploadProducts(c, kind, file, "Список сырья успешно обработан")
	case reconcile.KindPackagingLabels:
		h.uploadProducts(c, kind, file, "Список упаковки и наклеек успешно обработан")
	case reconcile.KindSuppliers:
		h.uploadSuppliers(c, file)
	case reconcile.KindSupplierProduct:
		h.uploadSupplierProduct(c, file)
	}
}

// uploadPurchase syncs the purchase list. Products are synced first,
// then grouped by the suppliers carrying them. The raw file is kept so
// /get_processed_data can replay it later.
func (h *UploadHandler) uploadPurchase(c *gin.Context, file *recordsource.File, data []byte) {
	report, err := h.purchase.Sync(c.Request.Context(), file.Products)
	if err != nil {
		h.syncError(c, err)
		return
	}
	if err := h.archive.Save(data); err != nil {
		h.log.Warn("purchase archive not saved", zap.Error(err))
	}
	h.Success(c, "Закупочный лист успешно загружен и обработан", report)
}

func (h *UploadHandler) uploadProducts(c *gin.Context, kind reconcile.RecordKind, file *recordsource.File, message string) {
	results, err := h.products.Sync(c.Request.Context(), kind, file.Products)
	if err != nil {
		h.syncError(c, err)
		return
	}
	h.Success(c, message, results)
}

func (h *UploadHandler) uploadSuppliers(c *gin.Context, file *recordsource.File) {
	results, err := h.suppliers.Sync(c.Request.Context(), file.Suppliers)
	if err != nil {
		h.syncError(c, err)
		return
	}
	h.Success(c, "Список поставщиков успешно обработан и обновлён в Bitrix24", results)
}

func (h *UploadHandler) uploadSupplierProduct(c *gin.Context, file *recordsource.File) {
	groups, err := h.links.Sync(c.Request.Context(), file.Links)
	if err != nil {
		h.syncError(c, err)
		return
	}
	h.Success(c, "Связки поставщик-товар успешно обработаны и обновлены в смарт-процессе", groups)
}

// ProcessedPurchase re-runs the sync for the last uploaded purchase
// list from the stored copy.
func (h *UploadHandler) ProcessedPurchase(c *gin.Context) {
	data, err := h.archive.Load()
	if err != nil {
		if errors.Is(err, recordsource.ErrNoArchive) {
			h.NotFound(c, "Закупочный лист ещё не загружался", err)
			return
		}
		h.ServerError(c, "Не удалось прочитать сохранённый закупочный лист", err)
		return
	}

	file, err := h.source.Parse(reconcile.KindPurchase, data)
	if err != nil {
		h.ServerError(c, "Сохранённый закупочный лист повреждён", err)
		return
	}

	report, err := h.purchase.Sync(c.Request.Context(), file.Products)
	if err != nil {
		h.syncError(c, err)
		return
	}
	h.Success(c, "Данные закупочного листа успешно обработаны", report)
}
