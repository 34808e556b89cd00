package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snackly/payments-service/internal/notify"
)

func testEvent() *notify.OrderConfirmedEvent {
	return &notify.OrderConfirmedEvent{
		EventType: "order_confirmed",
		OrderID:   "order-1",
		Phone:     "9876543210",
		Amount:    10000,
		PaidAt:    time.Now(),
	}
}

func TestDeliver_Success(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := &Notifier{
		http: &http.Client{Timeout: time.Second},
		cfg: Config{
			PushURL: server.URL,
			AppID:   "app-1",
			RESTKey: "rest-key",
		},
	}

	err := n.deliver(context.Background(), testEvent())

	require.NoError(t, err)
	assert.Equal(t, "Basic rest-key", gotAuth)
	assert.Equal(t, "app-1", gotBody["app_id"])

	custom, ok := gotBody["custom_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order-1", custom["order_id"])
}

func TestDeliver_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	n := &Notifier{
		http: &http.Client{Timeout: time.Second},
		cfg:  Config{PushURL: server.URL},
	}

	err := n.deliver(context.Background(), testEvent())
	assert.Error(t, err)
}
