package sales

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karimhafez/backend-pos/internal/common"
	"github.com/karimhafez/backend-pos/internal/pricing"
)

func newTestRouter(store *memStore) http.Handler {
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Post("/sales", h.Create)
	r.Get("/sales", h.List)
	r.Get("/sales/{id}", h.Get)
	return r
}

func TestCreateSaleEndpoint(t *testing.T) {
	store := newMemStore()
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 10})
	router := newTestRouter(store)

	body := `{
		"items": [{"productId": "` + snackID.String() + `", "quantity": 2, "regularPrice": "30", "staffPrice": "25", "priceUsed": "30"}],
		"staffDiscount": false,
		"paymentMethod": "Cash"
	}`
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	req = req.WithContext(common.WithOperatorID(req.Context(), "cashier-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Data Sale `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Total.Equal(dec("60")))
	assert.Equal(t, "cashier-1", resp.Data.CreatedBy)
	assert.Equal(t, int32(8), store.products[snackID].Stock)
}

func TestCreateSaleEndpointRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(newMemStore())

	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSaleEndpointDomainRejection(t *testing.T) {
	store := newMemStore()
	bottleID := store.addProduct(ProductRow{
		Name: "Large Water Bottle", BottleSize: pricing.BottleLarge, Owner: "house", Stock: 5,
	})
	staffID := store.addStaff("Omar", 0, 0)
	router := newTestRouter(store)

	body := `{
		"items": [{"productId": "` + bottleID.String() + `", "quantity": 1, "regularPrice": "20", "staffPrice": "10", "priceUsed": "10"}],
		"staffDiscount": true,
		"staffId": "` + staffID.String() + `",
		"paymentMethod": "Cash"
	}`
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ALLOWANCE_EXCEEDED", resp.Error.Code)
	assert.Equal(t, int32(5), store.products[bottleID].Stock)
}

func TestListAndGetSaleEndpoints(t *testing.T) {
	store := newMemStore()
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 10})
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}
	sale, err := svc.ProcessSale(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "cashier-1", Input{
		Items:         []InputItem{lineFor(snackID, 1, "30", "25", "30")},
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)
	router := newTestRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Data []Sale `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Data, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/"+sale.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
