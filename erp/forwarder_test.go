package erp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmie/stockrelay"
)

func testMessage(endpoint string) stockrelay.Message {
	return stockrelay.Message{
		SupplierID: "7",
		Identifier: "A1",
		Endpoint:   endpoint,
		Payload:    json.RawMessage(`{"action":"update_stock","item":{"sku":"A1","qty":3}}`),
	}
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestForwarderSuccess(t *testing.T) {
	var got *http.Request
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r
		form = r.PostForm
		respond(http.StatusOK, `{"success":true}`)(w, r)
	}))
	defer srv.Close()

	err := NewForwarder().Handle(context.Background(), testMessage(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
	assert.Equal(t, []string{"A1"}, form["item[sku]"])
	assert.Equal(t, []string{"3"}, form["item[qty]"])
}

func TestForwarderDefaultEndpoint(t *testing.T) {
	srv := httptest.NewServer(respond(http.StatusOK, `{"success":true}`))
	defer srv.Close()

	require.NoError(t, NewForwarder(WithEndpoint(srv.URL)).Handle(context.Background(), testMessage("")))
}

func TestForwarderMissingEndpoint(t *testing.T) {
	err := NewForwarder().Handle(context.Background(), testMessage(""))

	assert.ErrorIs(t, err, ErrEndpointRequired)
	assert.ErrorIs(t, err, stockrelay.ErrPermanentRejection)
}

func TestForwarderRejections(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		permanent bool
		contains  string
	}{
		{name: "business failure", status: http.StatusOK, body: `{"success":false,"message":"unknown sku"}`, contains: "unknown sku"},
		{name: "truthy string", status: http.StatusOK, body: `{"success":"true"}`, contains: "success flag not set"},
		{name: "missing flag", status: http.StatusOK, body: `{}`},
		{name: "not json", status: http.StatusOK, body: `OK`, contains: "OK"},
		{name: "server error", status: http.StatusBadGateway, body: `{"success":true}`},
		{name: "throttled", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, contains: "slow down"},
		{name: "request timeout", status: http.StatusRequestTimeout, body: `{}`},
		{name: "client error", status: http.StatusUnprocessableEntity, body: `{"error":"bad item"}`, permanent: true},
		{name: "not found", status: http.StatusNotFound, body: ``, permanent: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(respond(tc.status, tc.body))
			defer srv.Close()

			err := NewForwarder().Handle(context.Background(), testMessage(srv.URL))
			require.Error(t, err)
			assert.ErrorIs(t, err, stockrelay.ErrDeliveryRejected)
			assert.Equal(t, tc.permanent, errors.Is(err, stockrelay.ErrPermanentRejection))
			if tc.contains != "" {
				assert.Contains(t, err.Error(), tc.contains)
			}
		})
	}
}

func TestForwarderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := NewForwarder(WithTimeout(50*time.Millisecond)).Handle(context.Background(), testMessage(srv.URL))

	assert.ErrorIs(t, err, stockrelay.ErrDeliveryFailed)
	assert.NotErrorIs(t, err, stockrelay.ErrPermanentRejection)
}

func TestForwarderConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(respond(http.StatusOK, `{"success":true}`))
	url := srv.URL
	srv.Close()

	err := NewForwarder().Handle(context.Background(), testMessage(url))

	assert.ErrorIs(t, err, stockrelay.ErrDeliveryFailed)
}

func TestForwarderRejectionClassification(t *testing.T) {
	srv := httptest.NewServer(respond(http.StatusBadRequest, `{"error":"sku unknown"}`))
	defer srv.Close()

	err := NewForwarder().Handle(context.Background(), testMessage(srv.URL))

	assert.Equal(t, stockrelay.FailureDead, stockrelay.DeadOnPermanentRejection(context.Background(), testMessage(srv.URL), err))
	assert.Equal(t, stockrelay.FailureRetry, stockrelay.RetryAll(context.Background(), testMessage(srv.URL), err))
}
