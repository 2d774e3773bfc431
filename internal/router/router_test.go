package router

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/prepdeck/internal/db/memorystorage"
	"github.com/prepdeck/prepdeck/internal/db/storage"
	"github.com/prepdeck/prepdeck/internal/ipchecker"
	"github.com/prepdeck/prepdeck/internal/logger"
	"github.com/prepdeck/prepdeck/internal/mockstorage"
	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/service"
)

func newTestServer(t *testing.T, trustedSubnet string) *httptest.Server {
	t.Helper()

	require.NoError(t, logger.Init("error"))

	theStorage, err := memorystorage.New()
	require.NoError(t, err)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	svc := service.New(theStorage, nil, service.WithNow(func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Millisecond)
	}))

	theIPChecker, err := ipchecker.New(trustedSubnet)
	require.NoError(t, err)

	server := httptest.NewServer(New(svc, theIPChecker))
	t.Cleanup(server.Close)

	return server
}

func decodeBody(t *testing.T, body []byte, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, dst))
}

func TestUserLifecycle(t *testing.T) {
	server := newTestServer(t, "")
	client := resty.New()

	var userID int64

	t.Run("Registration answers 201", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{"email": "alice@example.com", "password": "password1", "username": "alice"}`).
			Post(server.URL + "/users")
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode())

		var body models.MessageResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "User successfully created", body.Message)
	})

	t.Run("Registering the same email again answers 400", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{"email": "alice@example.com", "password": "password1", "username": "alice2"}`).
			Post(server.URL + "/users")
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

		var body models.ErrorResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "A user with this email already exists", body.Error)
	})

	t.Run("Login answers 200 with the user's id", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{"email": "alice@example.com", "password": "password1"}`).
			Post(server.URL + "/login")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())

		var body models.LoginResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "Login successful", body.Message)
		assert.Positive(t, body.ID)

		userID = body.ID
	})

	t.Run("Lookup answers 200 without the password", func(t *testing.T) {
		resp, err := client.R().Get(fmt.Sprintf("%s/users/%d", server.URL, userID))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())

		var body map[string]any
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "alice@example.com", body["email"])
		assert.Equal(t, "alice", body["username"])
		assert.NotContains(t, body, "password", "The password must never appear in the response")
	})

	t.Run("A wrong password answers 401", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{"email": "alice@example.com", "password": "password2"}`).
			Post(server.URL + "/login")
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

		var body models.ErrorResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "Invalid credentials", body.Error)
	})

	t.Run("Deletion answers 200 once, then the user is gone", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(fmt.Sprintf(`{"id": %d}`, userID)).
			Delete(server.URL + "/users")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())

		var body models.MessageResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "User deleted", body.Message)

		resp, err = client.R().Get(fmt.Sprintf("%s/users/%d", server.URL, userID))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	})
}

func TestFeedbackLifecycle(t *testing.T) {
	server := newTestServer(t, "")
	client := resty.New()

	t.Run("Creation answers 201", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{
				"user_id": 7,
				"score": 85,
				"feedback": "Solid round",
				"duration": 60,
				"position": "Backend Engineer",
				"company": "Acme"
			}`).
			Post(server.URL + "/feedback")
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode())

		var body models.MessageResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "Interview feedback created", body.Message)
	})

	t.Run("Listing answers 200 with integral numbers rendered as integers", func(t *testing.T) {
		resp, err := client.R().Get(server.URL + "/feedback?user_id=7")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Contains(t, string(resp.Body()), `"score":85`, "The score must not render as 85.0")

		var body []map[string]any
		decodeBody(t, resp.Body(), &body)
		require.Len(t, body, 1)
		assert.Equal(t, "Acme", body[0]["company"])
		assert.Equal(t, "2024-06-01 10:00:00", body[0]["created_at"])
	})

	t.Run("Listing an unknown user answers 200 with an empty array", func(t *testing.T) {
		resp, err := client.R().Get(server.URL + "/feedback?user_id=999")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.JSONEq(t, `[]`, string(resp.Body()), "No feedback must encode as [], not null")
	})

	t.Run("A missing user_id query answers 400", func(t *testing.T) {
		resp, err := client.R().Get(server.URL + "/feedback")
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

		var body models.ErrorResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "Invalid or missing user_id", body.Error)
	})

	t.Run("A score of zero counts as a missing field", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{
				"user_id": 7,
				"score": 0,
				"feedback": "Solid round",
				"duration": 60,
				"position": "Backend Engineer",
				"company": "Acme"
			}`).
			Post(server.URL + "/feedback")
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

		var body models.ErrorResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "All fields are required", body.Error)
	})

	t.Run("Deletion by the id from the listing answers 200", func(t *testing.T) {
		resp, err := client.R().Get(server.URL + "/feedback?user_id=7")
		require.NoError(t, err)

		var records []struct {
			ID int64 `json:"id"`
		}
		decodeBody(t, resp.Body(), &records)
		require.Len(t, records, 1)

		resp, err = client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(fmt.Sprintf(`{"id": %d}`, records[0].ID)).
			Delete(server.URL + "/feedback")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())

		var body models.MessageResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "Interview feedback deleted", body.Message)
	})

	t.Run("Deleting it again answers 404", func(t *testing.T) {
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{"id": 123456}`).
			Delete(server.URL + "/feedback")
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode())

		var body models.ErrorResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, "Feedback not found", body.Error)
	})
}

func TestUnsupportedMethod(t *testing.T) {
	server := newTestServer(t, "")
	client := resty.New()

	resp, err := client.R().Patch(server.URL + "/users")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode(), "A wrong method answers 400, not 405")

	var body models.MessageResponse
	decodeBody(t, resp.Body(), &body)
	assert.Equal(t, "Unsupported HTTP method", body.Message)
}

func TestPing(t *testing.T) {
	server := newTestServer(t, "")
	client := resty.New()

	resp, err := client.R().Get(server.URL + "/ping")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestInternalStats(t *testing.T) {
	t.Run("Without a trusted subnet the endpoint is closed", func(t *testing.T) {
		server := newTestServer(t, "")
		client := resty.New()

		resp, err := client.R().Get(server.URL + "/api/internal/stats")
		require.NoError(t, err)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})

	t.Run("A client inside the subnet gets the counts", func(t *testing.T) {
		server := newTestServer(t, "127.0.0.0/8")
		client := resty.New()

		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{"email": "alice@example.com", "password": "password1", "username": "alice"}`).
			Post(server.URL + "/users")
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode())

		resp, err = client.R().Get(server.URL + "/api/internal/stats")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())

		var body models.InternalStatsResponse
		decodeBody(t, resp.Body(), &body)
		assert.Equal(t, models.InternalStatsResponse{Users: 1, Feedback: 0}, body)
	})

	t.Run("A client outside the subnet is rejected", func(t *testing.T) {
		server := newTestServer(t, "10.0.0.0/8")
		client := resty.New()

		resp, err := client.R().Get(server.URL + "/api/internal/stats")
		require.NoError(t, err)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})
}

func TestGzippedTraffic(t *testing.T) {
	server := newTestServer(t, "")

	t.Run("A gzip-compressed request body is accepted", func(t *testing.T) {
		var compressed bytes.Buffer
		zw := gzip.NewWriter(&compressed)
		_, err := zw.Write([]byte(`{"email": "alice@example.com", "password": "password1", "username": "alice"}`))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Content-Encoding", "gzip").
			SetBody(compressed.Bytes()).
			Post(server.URL + "/users")
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode())
	})

	t.Run("An error body is marked gzip when the client accepts it", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/users/abc", nil)
		require.NoError(t, err)
		req.Header.Set("Accept-Encoding", "gzip")

		// A bare transport performs no transparent decompression, so the raw
		// encoding of the error body is observable.
		resp, err := (&http.Client{Transport: &http.Transport{}}).Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"),
			"A compressed error body must carry the encoding header")

		zr, err := gzip.NewReader(resp.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.JSONEq(t, `{"error": "Invalid or missing ID"}`, string(body))
	})
}

func TestStorageFailureIsOpaque(t *testing.T) {
	require.NoError(t, logger.Init("error"))

	theStorage := &mockstorage.StorageMock{}
	theStorage.
		On("Scan", mock.Anything, models.UsersTable, mock.Anything).
		Return([]storage.Record(nil), errors.New("backend exploded"))

	svc := service.New(theStorage, nil)
	theIPChecker, err := ipchecker.New("")
	require.NoError(t, err)

	server := httptest.NewServer(New(svc, theIPChecker))
	defer server.Close()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"email": "alice@example.com", "password": "password1"}`).
		Post(server.URL + "/login")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.JSONEq(t, `{"error": "internal server error"}`, string(resp.Body()),
		"The backend failure detail must not leak into the response")

	theStorage.AssertExpectations(t)
}
