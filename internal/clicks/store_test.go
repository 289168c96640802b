package clicks

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ristorino-api/internal/common/database"
	"ristorino-api/internal/common/errors"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/models"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(&database.PostgresClient{DB: db}, logger.NewTestLogger(t))
	return store, mock
}

func TestGetUnnotifiedClicks_FragmentedDocument(t *testing.T) {
	store, mock := newTestStore(t)

	// One document split across three rows, second entry's sub-objects
	// double-encoded
	doc := `[` +
		`{"click":{"nro_restaurante":5,"nro_idioma":1,"nro_contenido":10,"nro_click":100,"nro_cliente":7},` +
		`"contenido":{"costo_click":1.5,"cod_contenido_restaurante":"PROMO-A"}},` +
		`{"click":"{\"nro_restaurante\":5,\"nro_contenido\":11,\"nro_click\":101}",` +
		`"contenido":"{\"costo_click\":2.0,\"cod_contenido_restaurante\":\"PROMO-B\"}"}` +
		`]`

	rows := sqlmock.NewRows([]string{"documento"}).
		AddRow(doc[:40]).
		AddRow(doc[40:90]).
		AddRow(doc[90:])
	mock.ExpectQuery("pa_obtener_clicks_no_notificados").WillReturnRows(rows)

	pending, err := store.GetUnnotifiedClicks(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	assert.Equal(t, 5, pending[0].RestaurantID)
	assert.Equal(t, 10, pending[0].ContentID)
	assert.Equal(t, 100, pending[0].ClickID)
	assert.Equal(t, 1.5, pending[0].ClickCost)
	assert.Equal(t, "PROMO-A", pending[0].ExternalContentCode)
	require.NotNil(t, pending[0].CustomerID)
	assert.Equal(t, 7, *pending[0].CustomerID)

	// Double-encoded entry decoded the same as the native one
	assert.Equal(t, 101, pending[1].ClickID)
	assert.Equal(t, 2.0, pending[1].ClickCost)
	assert.Equal(t, "PROMO-B", pending[1].ExternalContentCode)
	assert.Nil(t, pending[1].CustomerID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnnotifiedClicks_EmptyDocument(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("pa_obtener_clicks_no_notificados").
		WillReturnRows(sqlmock.NewRows([]string{"documento"}))

	pending, err := store.GetUnnotifiedClicks(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetUnnotifiedClicks_SkipsRowMissingIdentifiers(t *testing.T) {
	store, mock := newTestStore(t)

	doc := `[` +
		`{"click":{"nro_restaurante":5,"nro_contenido":10,"nro_click":100},` +
		`"contenido":{"cod_contenido_restaurante":"PROMO-A"}},` +
		`{"click":{"nro_restaurante":5},"contenido":{}}` +
		`]`
	mock.ExpectQuery("pa_obtener_clicks_no_notificados").
		WillReturnRows(sqlmock.NewRows([]string{"documento"}).AddRow(doc))

	pending, err := store.GetUnnotifiedClicks(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 100, pending[0].ClickID)
}

func TestGetUnnotifiedClicks_InvalidDocument(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("pa_obtener_clicks_no_notificados").
		WillReturnRows(sqlmock.NewRows([]string{"documento"}).AddRow(`not json`))

	_, err := store.GetUnnotifiedClicks(context.Background(), nil, nil, nil)
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeDocumentParseFailed, stdErr.Code)
}

func TestConfirmClickNotified(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected bool
	}{
		{"updated row", `{"actualizado":1}`, true},
		{"already confirmed", `{"actualizado":0}`, false},
		{"empty response", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)

			rows := sqlmock.NewRows([]string{"documento"})
			if tt.doc != "" {
				rows.AddRow(tt.doc)
			}
			mock.ExpectQuery("pa_confirmar_notificacion_click").WillReturnRows(rows)

			confirmed, err := store.ConfirmClickNotified(context.Background(), 5, nil, 10, 100)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, confirmed)
		})
	}
}

func TestRegisterClick_NormalizesResponse(t *testing.T) {
	store, mock := newTestStore(t)

	doc := `{"click":"{\"nro_click\":200}","contenido":{"nro_contenido":10}}`
	mock.ExpectQuery("pa_registrar_click").
		WillReturnRows(sqlmock.NewRows([]string{"documento"}).AddRow(doc))

	registered := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	resp, err := store.RegisterClick(context.Background(), models.ClickRequest{
		ContentID:    10,
		RegisteredAt: &registered,
	})
	require.NoError(t, err)

	click, ok := resp["click"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(200), click["nro_click"])
}

func TestRegisterClick_UnresolvedContent(t *testing.T) {
	store, mock := newTestStore(t)

	// The procedure answers nothing when the content id does not map to a
	// restaurant and language
	mock.ExpectQuery("pa_registrar_click").
		WillReturnRows(sqlmock.NewRows([]string{"documento"}))

	_, err := store.RegisterClick(context.Background(), models.ClickRequest{ContentID: 999})
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeContentUnresolved, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestRegisterClick_UnparseableResponse(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("pa_registrar_click").
		WillReturnRows(sqlmock.NewRows([]string{"documento"}).AddRow(`OK: click registrado`))

	resp, err := store.RegisterClick(context.Background(), models.ClickRequest{ContentID: 10})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"raw": "OK: click registrado"}, resp)
}
