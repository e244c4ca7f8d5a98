package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fslarfn/toto-backend-sub000/config"
)

func TestWhatsAppClient_Send(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":true}`))
	}))
	defer srv.Close()

	client, err := NewWhatsAppClient(config.WhatsAppConfig{APIURL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	require.NoError(t, client.Send(context.Background(), "628123", "halo"))
	assert.Equal(t, "secret", auth)
	assert.Equal(t, "628123", got["target"])
	assert.Equal(t, "halo", got["message"])
}

func TestWhatsAppClient_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"reason":"invalid target"}`))
	}))
	defer srv.Close()

	client, err := NewWhatsAppClient(config.WhatsAppConfig{APIURL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	err = client.Send(context.Background(), "0", "halo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target")
}

func TestWhatsAppClient_SendStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewWhatsAppClient(config.WhatsAppConfig{APIURL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	assert.Error(t, client.Send(context.Background(), "628123", "halo"))
}

func TestNewWhatsAppClient_RequiresToken(t *testing.T) {
	_, err := NewWhatsAppClient(config.WhatsAppConfig{})
	assert.Error(t, err)
}

func TestReminderMessage(t *testing.T) {
	msg := ReminderMessage("Budi", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, msg, "Halo Budi")
	assert.Contains(t, msg, "12/03/2024")
}
