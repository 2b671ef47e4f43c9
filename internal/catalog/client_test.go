package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voxsearch/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.CatalogConfig{
		APIBaseURL:  server.URL + "/",
		AISearchURL: server.URL + "/webhook/search",
		TimeoutMS:   2000,
		EnableHTTP2: true,
	}, nil)
}

func TestListProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/products", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"id":1,"name":"Whey Protein","category":"Suplementos","price":129.9},
			{"id":"abc","name":"Creatina","category":"Suplementos","price":89.5,"imageUrl":"https://img/c.png"}
		]}`)
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, ID("1"), products[0].ID)
	require.Equal(t, ID("abc"), products[1].ID)
	require.Equal(t, "https://img/c.png", products[1].ImageURL)
}

func TestListProductsEmptyData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.NotNil(t, products)
	require.Empty(t, products)
}

func TestGetProductEscapesID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/a%2Fb", r.URL.EscapedPath())
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"a/b","name":"Ômega 3","category":"Óleos","price":45}}`)
	})

	product, err := client.GetProduct(context.Background(), "a/b")
	require.NoError(t, err)
	require.Equal(t, "Ômega 3", product.Name)
}

func TestCreateProductSendsJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Whey Protein", body["name"])
		require.Equal(t, 129.9, body["price"])
		require.NotContains(t, body, "id")

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":7,"name":"Whey Protein","category":"Suplementos","price":129.9}}`)
	})

	created, err := client.CreateProduct(context.Background(), Product{
		ID:       "ignored",
		Name:     "Whey Protein",
		Category: "Suplementos",
		Price:    129.9,
	})
	require.NoError(t, err)
	require.Equal(t, ID("7"), created.ID)
}

func TestCreateProductValidatesBeforeRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) { called = true })

	_, err := client.CreateProduct(context.Background(), Product{Price: 0})
	require.ErrorIs(t, err, ErrInvalidProduct)
	require.Contains(t, err.Error(), "name")
	require.Contains(t, err.Error(), "category")
	require.Contains(t, err.Error(), "price")
	require.False(t, called)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	var methods []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		require.Equal(t, "/products/9", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":9,"name":"BCAA","category":"Aminoácidos","price":60}}`)
	})

	updated, err := client.UpdateProduct(context.Background(), "9", Product{Name: "BCAA", Category: "Aminoácidos", Price: 60})
	require.NoError(t, err)
	require.Equal(t, "BCAA", updated.Name)
	require.NoError(t, client.DeleteProduct(context.Background(), "9"))
	require.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestProductAPIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "envelope failure", status: http.StatusOK, body: `{"success":false,"message":"Produto não encontrado"}`, message: "Produto não encontrado"},
		{name: "http error with envelope", status: http.StatusBadRequest, body: `{"success":false,"message":"preço inválido"}`, message: "preço inválido"},
		{name: "http error plain body", status: http.StatusBadGateway, body: "upstream down", message: "upstream down"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := client.GetProduct(context.Background(), "1")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tc.status, apiErr.Status)
			require.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestProductAPINotConfigured(t *testing.T) {
	client := NewClient(config.CatalogConfig{}, nil)
	_, err := client.ListProducts(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
	require.ErrorIs(t, client.Ping(context.Background()), ErrNotConfigured)
}

func TestAISearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/webhook/search", r.URL.Path)
		require.Equal(t, "text/plain", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{"productName": "Whey Protein"}, body)

		_, _ = io.WriteString(w, `{"success":true,"message":{
			"benefits":["recuperação muscular"],
			"contraindications":["alergia à lactose"],
			"origin":"soro do leite",
			"purpose":"suplementação proteica"
		}}`)
	})

	result, err := client.AISearch(context.Background(), "  Whey Protein ")
	require.NoError(t, err)
	require.Equal(t, []string{"recuperação muscular"}, result.Benefits)
	require.Equal(t, []string{"alergia à lactose"}, result.Contraindications)
	require.Equal(t, "soro do leite", result.Origin)
	require.Equal(t, "suplementação proteica", result.Purpose)
}

func TestAISearchFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Falha ao buscar informações"}`)
	})

	_, err := client.AISearch(context.Background(), "Creatina")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Falha ao buscar informações", apiErr.Message)

	_, err = client.AISearch(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)

	unconfigured := NewClient(config.CatalogConfig{}, nil)
	_, err = unconfigured.AISearch(context.Background(), "Creatina")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestAISearchHTTPStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"webhook exploded"}`)
	})

	_, err := client.AISearch(context.Background(), "Creatina")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.Equal(t, "webhook exploded", apiErr.Message)
}
