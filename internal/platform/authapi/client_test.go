package authapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/markupsync/internal/platform/logger"
)

func TestGetEshopReturnsFirst(t *testing.T) {
	accountID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts/"+accountID.String()+"/eshop-api-keys", r.URL.Path)
		require.Equal(t, "secret-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id": 803, "shop_platform_id": 0}, {"id": 9, "shop_platform_id": 4}]`))
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{BaseURL: srv.URL + "/", Token: "secret-token"})
	require.NoError(t, err)
	eshop, err := c.GetEshop(context.Background(), accountID)
	require.NoError(t, err)
	require.EqualValues(t, 803, eshop.ID)
	require.Equal(t, PlatformShopify, eshop.PlatformID)
	require.Equal(t, "Shopify", eshop.PlatformID.String())
}

func TestGetEshopEmptyAndErrors(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.GetEshop(context.Background(), uuid.New())
	require.True(t, errors.Is(err, ErrEshopNotFound))

	status = http.StatusForbidden
	_, err = c.GetEshop(context.Background(), uuid.New())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 403")
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(logger.Nop(), Config{})
	require.Error(t, err)
}
