package appstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
	calls int
}

func (s *staticTokens) IssueToken() (string, error) {
	s.calls++
	return s.token, s.err
}

func TestRegisterDevice_Registered(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/devices", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"DEV1","type":"devices","attributes":{"udid":"00008030-001A2D3C0E12402E"}}}`))
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "tok"}
	client := NewClient(srv.URL, tokens)

	res, err := client.RegisterDevice(context.Background(), "00008030-001A2D3C0E12402E", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, res.Outcome)
	assert.Equal(t, "DEV1", res.DeviceID)
	assert.Equal(t, 1, tokens.calls)

	data := gotBody["data"].(map[string]any)
	assert.Equal(t, "devices", data["type"])
	attrs := data["attributes"].(map[string]any)
	assert.Equal(t, "Tester-402E", attrs["name"])
	assert.Equal(t, "00008030-001A2D3C0E12402E", attrs["udid"])
	assert.Equal(t, "IOS", attrs["platform"])
}

func TestRegisterDevice_ExplicitName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data struct {
				Attributes struct {
					Name string `json:"name"`
				} `json:"attributes"`
			} `json:"data"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "QA iPhone", body.Data.Attributes.Name)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	_, err := client.RegisterDevice(context.Background(), "udid", "QA iPhone")
	require.NoError(t, err)
}

func TestRegisterDevice_AlreadyRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"errors":[{"status":"409","detail":"device exists"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	res, err := client.RegisterDevice(context.Background(), "udid-1234", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRegistered, res.Outcome)
}

func TestRegisterDevice_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"code":"FORBIDDEN_ERROR","detail":"nope"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	res, err := client.RegisterDevice(context.Background(), "udid-1234", "")
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "nope", apiErr.Message)
}

func TestRegisterDevice_TokenFailure(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	signErr := errors.New("sign failed")
	client := NewClient(srv.URL, &staticTokens{err: signErr})

	res, err := client.RegisterDevice(context.Background(), "udid-1234", "")
	assert.ErrorIs(t, err, signErr)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, called, "no request may be sent without a token")
}

func TestRegisterDevice_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	res, err := client.RegisterDevice(context.Background(), "udid-1234", "")
	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestListDevices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/devices", r.URL.Path)
		w.Write([]byte(`{"data":[
			{"id":"A","type":"devices","attributes":{"name":"Tester-0001","udid":"u1","platform":"IOS","status":"ENABLED","model":"iPhone 15"}},
			{"id":"B","type":"devices","attributes":{"name":"Tester-0002","udid":"u2","platform":"IOS","status":"DISABLED"}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	devices, err := client.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "A", devices[0].ID)
	assert.Equal(t, "u1", devices[0].UDID)
	assert.Equal(t, "iPhone 15", devices[0].Model)
	assert.Equal(t, "DISABLED", devices[1].Status)
}

func TestListDevices_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"detail":"bad token"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	_, err := client.ListDevices(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestDefaultDeviceName(t *testing.T) {
	assert.Equal(t, "Tester-402E", DefaultDeviceName("00008030-001A2D3C0E12402E"))
	assert.Equal(t, "Tester-abc", DefaultDeviceName("abc"))
}
