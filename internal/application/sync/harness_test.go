package syncapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/infrastructure/bitrix"
)

// fakePortal is a scripted remote store. The respond callback maps a
// decoded method and its parameters to a result or a fault; every call
// is recorded for write-count assertions.
type fakePortal struct {
	t       *testing.T
	respond func(method string, params url.Values) (any, *bitrix.CommandFault)

	mu    sync.Mutex
	calls []portalCall
}

type portalCall struct {
	method string
	params url.Values
}

func (p *fakePortal) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(p.t, http.MethodPost, r.Method)
		require.Equal(p.t, "/batch", r.URL.Path)

		var body struct {
			Halt int               `json:"halt"`
			Cmd  map[string]string `json:"cmd"`
		}
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&body))

		resultMap := make(map[string]any)
		faults := make(map[string]*bitrix.CommandFault)
		for name, cmd := range body.Cmd {
			method, rawQuery, _ := strings.Cut(cmd, "?")
			params, err := url.ParseQuery(rawQuery)
			require.NoError(p.t, err)

			p.mu.Lock()
			p.calls = append(p.calls, portalCall{method: method, params: params})
			p.mu.Unlock()

			result, fault := p.respond(method, params)
			if fault != nil {
				faults[name] = fault
				continue
			}
			resultMap[name] = result
		}

		envelope := map[string]any{
			"result": map[string]any{
				"result":       resultMap,
				"result_error": faults,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(p.t, json.NewEncoder(w).Encode(envelope))
	}
}

// count returns how many commands with the given method were received.
func (p *fakePortal) count(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

// last returns the parameters of the most recent call with the given
// method, failing the test when none was made.
func (p *fakePortal) last(method string) url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.calls) - 1; i >= 0; i-- {
		if p.calls[i].method == method {
			return p.calls[i].params
		}
	}
	p.t.Fatalf("no call with method %s", method)
	return nil
}

// fixedSource hands out a pre-built remote bundle.
type fixedSource struct {
	remote *Remote
}

func (f *fixedSource) Remote() (*Remote, error) { return f.remote, nil }

// newPortalServer starts an HTTP server around the fake portal and
// returns its base URL.
func newPortalServer(t *testing.T, portal *fakePortal) string {
	t.Helper()
	srv := httptest.NewServer(portal.handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// newTestSource wires a remote bundle to the fake portal.
func newTestSource(t *testing.T, portal *fakePortal) *fixedSource {
	t.Helper()
	client := bitrix.NewClient(bitrix.Config{
		Endpoint: newPortalServer(t, portal),
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
	return &fixedSource{remote: NewRemote(client, zap.NewNop())}
}
