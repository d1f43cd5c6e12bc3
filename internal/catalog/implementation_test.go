package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSourceFetchProducts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "title", "price", "images"}).
		AddRow("1", "Essence Mascara", "9.99", "{https://cdn/1.png,https://cdn/1b.png}").
		AddRow("2", "Eyeshadow Palette", "19.99", "{}")
	mock.ExpectQuery(regexp.QuoteMeta("FROM products")).WillReturnRows(rows)

	products, err := NewPostgresSource(db).FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, ProductID("1"), products[0].ID)
	assert.Equal(t, "9.99", products[0].Price.String())
	assert.Equal(t, []string{"https://cdn/1.png", "https://cdn/1b.png"}, products[0].Images)
	assert.Empty(t, products[1].Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSourceQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err = NewPostgresSource(db).FetchProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestHandleProducts(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(StaticSource{{ID: "1", Title: "Mascara"}}, nil).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "Mascara", body.Products[0].Title)
}

func TestHandleProductsSourceFailure(t *testing.T) {
	failing := SourceFunc(func(context.Context) ([]Product, error) {
		return nil, errors.New("db down")
	})
	r := chi.NewRouter()
	NewHandler(failing, nil).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
