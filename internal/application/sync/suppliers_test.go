package syncapp

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
	"github.com/crmbridge/backend/internal/infrastructure/bitrix"
)

func TestSupplierSyncCreatesUpdatesAndSkips(t *testing.T) {
	portal := &fakePortal{t: t}
	portal.respond = func(method string, params url.Values) (any, *bitrix.CommandFault) {
		switch method {
		case "crm.contact.list":
			switch params.Get("filter[UF_CRM_CONTACT_ACCESS_ID]") {
			case "7":
				return []map[string]any{{
					"ID": "70", "NAME": "ООО Ромашка", "UF_CRM_CONTACT_ACCESS_ID": "7",
				}}, nil
			case "8":
				return []map[string]any{{
					"ID": "80", "NAME": "Старое имя", "UF_CRM_CONTACT_ACCESS_ID": "8",
				}}, nil
			default:
				return []any{}, nil
			}
		case "crm.contact.add":
			require.Equal(t, "Новый поставщик", params.Get("fields[NAME]"))
			return 90, nil
		case "crm.contact.update":
			require.Equal(t, "80", params.Get("id"))
			require.Equal(t, "ИП Иванов", params.Get("fields[NAME]"))
			return true, nil
		default:
			t.Fatalf("unexpected method %s", method)
			return nil, nil
		}
	}
	source := newTestSource(t, portal)
	svc := NewSupplierService(source, zap.NewNop())

	records := []reconcile.SupplierRecord{
		{AccessID: "7", Name: "ООО Ромашка"},
		{AccessID: "8", Name: "ИП Иванов"},
		{AccessID: "9", Name: "Новый поставщик"},
	}
	results, err := svc.Sync(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "noop", results[0].Action)
	assert.Equal(t, int64(70), results[0].RemoteID)
	assert.Equal(t, "update", results[1].Action)
	assert.Equal(t, int64(80), results[1].RemoteID)
	assert.Equal(t, "create", results[2].Action)
	assert.Equal(t, int64(90), results[2].RemoteID)

	assert.Equal(t, 1, portal.count("crm.contact.add"))
	assert.Equal(t, 1, portal.count("crm.contact.update"))
}

func TestSupplierSyncSecondPassIsNoOp(t *testing.T) {
	created := false
	portal := &fakePortal{t: t}
	portal.respond = func(method string, params url.Values) (any, *bitrix.CommandFault) {
		switch method {
		case "crm.contact.list":
			if !created {
				return []any{}, nil
			}
			return []map[string]any{{
				"ID": "90", "NAME": "Новый поставщик", "UF_CRM_CONTACT_ACCESS_ID": "9",
			}}, nil
		case "crm.contact.add":
			created = true
			return 90, nil
		default:
			t.Fatalf("unexpected method %s", method)
			return nil, nil
		}
	}
	source := newTestSource(t, portal)
	svc := NewSupplierService(source, zap.NewNop())

	records := []reconcile.SupplierRecord{{AccessID: "9", Name: "Новый поставщик"}}

	_, err := svc.Sync(context.Background(), records)
	require.NoError(t, err)

	results, err := svc.Sync(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, "noop", results[0].Action)
	assert.Equal(t, 1, portal.count("crm.contact.add"))
}
