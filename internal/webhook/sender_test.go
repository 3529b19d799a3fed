package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateNextRetry(t *testing.T) {
	cases := map[int]int{
		0:  30,
		1:  60,
		2:  120,
		3:  240,
		4:  600,
		10: 600,
	}
	for attempt, want := range cases {
		assert.Equal(t, want, CalculateNextRetry(attempt), "attempt %d", attempt)
	}
}

func TestSender_Send_Success(t *testing.T) {
	var gotMethod, gotContentType, gotConnHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotConnHeader = r.Header.Get("X-Odoo-Connection-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(5 * time.Second)
	err := s.Send(context.Background(), srv.URL, map[string]string{"hello": "world"}, "", 7)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "7", gotConnHeader)
}

func TestSender_Send_SecretHeaderOnlyWhenNonEmpty(t *testing.T) {
	var sawSecretHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSecretHeader = r.Header.Get("X-Webhook-Secret") != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(5 * time.Second)
	require.NoError(t, s.Send(context.Background(), srv.URL, map[string]string{}, "", 1))
	assert.False(t, sawSecretHeader)

	require.NoError(t, s.Send(context.Background(), srv.URL, map[string]string{}, "shh", 1))
	assert.True(t, sawSecretHeader)
}

func TestSender_Send_5xxIsSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	s := New(5 * time.Second)
	err := s.Send(context.Background(), srv.URL, map[string]string{}, "", 1)
	require.Error(t, err)

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	require.NotNil(t, sendErr.Status)
	assert.Equal(t, 500, *sendErr.Status)
	assert.Contains(t, sendErr.BodyPrefix, "boom")
}

func TestSender_Send_TransportErrorHasNilStatus(t *testing.T) {
	s := New(5 * time.Second)
	err := s.Send(context.Background(), "http://127.0.0.1:1", map[string]string{}, "", 1)
	require.Error(t, err)

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Nil(t, sendErr.Status)
}

func TestSender_Send_PayloadRoundTrips(t *testing.T) {
	var receivedBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := New(5 * time.Second)
	payload := map[string]interface{}{"order": map[string]interface{}{"id": float64(42)}}
	require.NoError(t, s.Send(context.Background(), srv.URL, payload, "", 1))
	assert.Equal(t, float64(42), receivedBody["order"].(map[string]interface{})["id"])
}
