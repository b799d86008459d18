package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncapp "github.com/crmbridge/backend/internal/application/sync"
	"github.com/crmbridge/backend/internal/infrastructure/bitrix"
	"github.com/crmbridge/backend/internal/infrastructure/config"
	"github.com/crmbridge/backend/internal/infrastructure/recordsource"
	"github.com/crmbridge/backend/internal/interfaces/http/dto"
	"github.com/crmbridge/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakePortal answers batched commands with scripted results.
type fakePortal struct {
	t       *testing.T
	respond func(method string, params url.Values) any

	mu    sync.Mutex
	calls []string
}

func (p *fakePortal) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Cmd map[string]string `json:"cmd"`
		}
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&body))

		resultMap := make(map[string]any)
		for name, cmd := range body.Cmd {
			method, rawQuery, _ := strings.Cut(cmd, "?")
			params, err := url.ParseQuery(rawQuery)
			require.NoError(p.t, err)

			p.mu.Lock()
			p.calls = append(p.calls, method)
			p.mu.Unlock()

			resultMap[name] = p.respond(method, params)
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(p.t, json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"result":       resultMap,
				"result_error": map[string]any{},
			},
		}))
	}
}

func (p *fakePortal) count(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == method {
			n++
		}
	}
	return n
}

type fixedSource struct {
	remote *syncapp.Remote
}

func (f *fixedSource) Remote() (*syncapp.Remote, error) { return f.remote, nil }

type errSource struct {
	err error
}

func (e *errSource) Remote() (*syncapp.Remote, error) { return nil, e.err }

func newPortalSource(t *testing.T, portal *fakePortal) *fixedSource {
	t.Helper()
	srv := httptest.NewServer(portal.handler())
	t.Cleanup(srv.Close)

	client := bitrix.NewClient(bitrix.Config{
		Endpoint: srv.URL,
		Fields: bitrix.FieldKeys{
			ProductAccessID:   "UF_CRM_ACCESS_ID",
			ContactAccessID:   "UF_CRM_CONTACT_ACCESS_ID",
			ContactProductIDs: "UF_CRM_PRODUCTS",
			SupplierFlag:      "UF_CRM_IS_SUPPLIER",
			PriceRequest:      "UF_CRM_PRICE_REQUEST",
			DeliveryDate:      "UF_CRM_DELIVERY_DATE",
		},
		EntityTypeID:     1068,
		DealCategoryID:   12,
		ProductSectionID: 3,
		CatalogIBlockID:  14,
		AssignedByID:     122,
		LineItemPause:    1,
	}, zap.NewNop())
	return &fixedSource{remote: syncapp.NewRemote(client, zap.NewNop())}
}

// newTestRouter mounts the upload, deal and system handlers the way
// the server does, backed by the given remote source.
func newTestRouter(t *testing.T, source syncapp.RemoteSource) *gin.Engine {
	t.Helper()
	log := zap.NewNop()
	engine := gin.New()
	router.NewRouter(engine).
		Register(NewUploadHandler(
			recordsource.NewSource(recordsource.Columns{}, log),
			recordsource.NewArchive(filepath.Join(t.TempDir(), "last_purchase.csv"), log),
			syncapp.NewProductListService(source, log),
			syncapp.NewSupplierService(source, log),
			syncapp.NewSupplierProductService(source, log),
			syncapp.NewPurchaseService(source, log),
			log)).
		Register(NewDealHandler(syncapp.NewDealService(source, log), log)).
		Register(NewSystemHandler()).
		Setup()
	return engine
}

func performJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func uploadBody(name, content string) dto.UploadRequest {
	return dto.UploadRequest{
		Filename: name,
		Base64:   "data:text/csv;base64," + base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

func TestTestEndpointResponds(t *testing.T) {
	engine := newTestRouter(t, &errSource{err: syncapp.ErrNotInitialized})

	rec := performJSON(engine, http.MethodGet, "/access_bitrix/test/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Status)
	assert.Equal(t, "success", resp.StatusMsg)
	assert.Equal(t, "Test endpoint is working", resp.Message)
}

func TestUploadRawCreatesMissingProducts(t *testing.T) {
	portal := &fakePortal{t: t}
	portal.respond = func(method string, params url.Values) any {
		switch method {
		case "crm.product.list":
			return []any{}
		case "crm.product.add":
			return 41
		default:
			t.Fatalf("unexpected method %s", method)
			return nil
		}
	}
	engine := newTestRouter(t, newPortalSource(t, portal))

	csv := "ZutatenLagerID,ZutatenLager,ZutatenLager_Tagespreis,EinheitID\n" +
		"101,Мука пшеничная,12.5,кг\n"
	rec := performJSON(engine, http.MethodPost, "/access_bitrix/upload/raw", uploadBody("raw.csv", csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Status)
	assert.Equal(t, "Список сырья успешно обработан", resp.Message)

	results, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "create", first["action"])
	assert.Equal(t, float64(41), first["bitrix_id"])
	assert.Equal(t, 1, portal.count("crm.product.add"))
}

func TestUploadRejectsMissingFields(t *testing.T) {
	engine := newTestRouter(t, &errSource{err: syncapp.ErrNotInitialized})

	rec := performJSON(engine, http.MethodPost, "/access_bitrix/upload/raw", map[string]any{
		"filename": "raw.csv",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Status)
	assert.Equal(t, "error", resp.StatusMsg)
}

func TestUploadRejectsMalformedBase64(t *testing.T) {
	engine := newTestRouter(t, &errSource{err: syncapp.ErrNotInitialized})

	rec := performJSON(engine, http.MethodPost, "/access_bitrix/upload/raw", dto.UploadRequest{
		Filename: "raw.csv",
		Base64:   "%%% not base64 %%%",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Message, "декодировать")
}

func TestUploadRejectsFileWithoutDataRows(t *testing.T) {
	engine := newTestRouter(t, &errSource{err: syncapp.ErrNotInitialized})

	csv := "ZutatenLagerID,ZutatenLager\n"
	rec := performJSON(engine, http.MethodPost, "/access_bitrix/upload/raw", uploadBody("raw.csv", csv))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Status)
}

func TestUploadReportsUninitializedPortal(t *testing.T) {
	engine := newTestRouter(t, &errSource{err: syncapp.ErrNotInitialized})

	csv := "ZutatenLagerID,ZutatenLager,ZutatenLager_Tagespreis,EinheitID\n" +
		"101,Мука пшеничная,12.5,кг\n"
	rec := performJSON(engine, http.MethodPost, "/access_bitrix/upload/raw", uploadBody("raw.csv", csv))
	require.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Message, "инициализацию")
}

func TestUploadSuppliersUpdatesContacts(t *testing.T) {
	portal := &fakePortal{t: t}
	portal.respond = func(method string, params url.Values) any {
		switch method {
		case "crm.contact.list":
			return []any{}
		case "crm.contact.add":
			return 70
		default:
			t.Fatalf("unexpected method %s", method)
			return nil
		}
	}
	engine := newTestRouter(t, newPortalSource(t, portal))

	csv := "LieferantID,Firma\n7,ООО Ромашка\n"
	rec := performJSON(engine, http.MethodPost, "/access_bitrix/upload/suppliers", uploadBody("suppliers.csv", csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Status)
	assert.Equal(t, "Список поставщиков успешно обработан и обновлён в Bitrix24", resp.Message)
	assert.Equal(t, 1, portal.count("crm.contact.add"))
}

func TestUploadRejectsUnknownKind(t *testing.T) {
	engine := newTestRouter(t, &errSource{err: syncapp.ErrNotInitialized})

	csv := "ZutatenLagerID,ZutatenLager\n101,Мука\n"
	rec := performJSON(engine, http.MethodPost, "/access_bitrix/upload/warehouse", uploadBody("warehouse.csv", csv))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Status)
	assert.Equal(t, "Неизвестный тип файла", resp.Message)
}

func TestProcessedPurchaseWithoutUpload(t *testing.T) {
	engine := newTestRouter(t, &errSource{err: syncapp.ErrNotInitialized})

	rec := performJSON(engine, http.MethodGet, "/access_bitrix/get_processed_data", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Message, "не загружался")
}

func TestProcessedPurchaseReplaysLastUpload(t *testing.T) {
	portal := &fakePortal{t: t}
	portal.respond = func(method string, params url.Values) any {
		switch method {
		case "crm.product.list":
			return []any{}
		case "crm.product.add":
			return 55
		case "crm.contact.list":
			return []any{}
		default:
			t.Fatalf("unexpected method %s", method)
			return nil
		}
	}
	engine := newTestRouter(t, newPortalSource(t, portal))

	csv := "ZutatenLagerID,ZutatenLager,ZutLagBestellen,ZutatenLager_Tagespreis,EinheitID\n" +
		"101,Мука пшеничная,3,12.5,кг\n"
	rec := performJSON(engine, http.MethodPost, "/access_bitrix/upload/purchase", uploadBody("purchase.csv", csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = performJSON(engine, http.MethodGet, "/access_bitrix/get_processed_data", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Status)
	assert.Equal(t, "Данные закупочного листа успешно обработаны", resp.Message)
	assert.Equal(t, 2, portal.count("crm.contact.list"))
}

func TestCreateDealsRejectsEmptyList(t *testing.T) {
	engine := newTestRouter(t, &errSource{err: syncapp.ErrNotInitialized})

	rec := performJSON(engine, http.MethodPost, "/access_bitrix/create_deals", []any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Message, "товары")
}

func newInitRouter(t *testing.T, envFile string) *gin.Engine {
	t.Helper()
	log := zap.NewNop()
	creds := syncapp.NewCredentialStore(config.CryptoConfig{EnvFile: envFile}, "", log)
	engine := gin.New()
	router.NewRouter(engine).
		Register(NewInitHandler(syncapp.NewInitService(creds, log), log)).
		Setup()
	return engine
}

func TestInitStoresPortalLink(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	engine := newInitRouter(t, envFile)

	rec := performJSON(engine, http.MethodPost, "/access_bitrix/init/", dto.InitRequest{
		Webhook: "https://portal.example/rest/1/secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Status)
	assert.Equal(t, "Система готова работать с вашим битриксом!", resp.Message)

	content, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CRMBRIDGE_CRYPTO_KEY=")
	assert.NotContains(t, string(content), "portal.example")
}

func TestInitRejectsBlankLink(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	engine := newInitRouter(t, envFile)

	rec := performJSON(engine, http.MethodPost, "/access_bitrix/init/", dto.InitRequest{
		Webhook: "   ",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Status)

	_, err := os.Stat(envFile)
	assert.True(t, os.IsNotExist(err))
}
