package pricing

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-rental-backend/internal/domain"
)

func TestHTTPPredictor_Estimate(t *testing.T) {
	features := domain.AssetFeatures{
		Type:         domain.AssetTypeLandBuilding,
		LandArea:     120,
		BuildingArea: 90,
		City:         "Bandung",
		Province:     "Jawa Barat",
	}

	t.Run("Rounds the estimate", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"type":"land_building","land_area_m2":120,"building_area_m2":90,"city":"Bandung","province":"Jawa Barat"}`, string(body))
			_, _ = w.Write([]byte(`{"monthly_price": 8499999.6, "model": "ensemble-v3"}`))
		}))
		defer srv.Close()

		got, err := NewHTTPPredictor(srv.URL, time.Second).Estimate(context.Background(), features)
		require.NoError(t, err)
		assert.Equal(t, int64(8_500_000), got)
	})

	t.Run("Non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPPredictor(srv.URL, time.Second).Estimate(context.Background(), features)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("Zero estimate", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"monthly_price": 0}`))
		}))
		defer srv.Close()

		_, err := NewHTTPPredictor(srv.URL, time.Second).Estimate(context.Background(), features)
		assert.ErrorIs(t, err, ErrNoEstimate)
	})
}
