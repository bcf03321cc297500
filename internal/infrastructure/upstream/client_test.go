package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edudash-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(srv.URL, srv.Client())
}

func TestNotifications_DecodesEnvelopeAndBearer(t *testing.T) {
	var gotAuth, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"id": 7, "type": "batch_request", "message": "New batch\nCenter Lyon submitted batch B-12", "created_at": "2026-08-29T10:00:00Z", "is_read": false},
				{"id": "n-8", "type": "card_payment", "message": "paid", "created_at": "2026-08-29T09:00:00Z", "is_read": true},
			},
		})
	})

	got, err := c.Notifications(context.Background(), "tok", domain.ScopeState)

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/notifications/state", gotPath)
	require.Len(t, got, 2)
	assert.Equal(t, domain.NotificationID("7"), got[0].ID)
	assert.Equal(t, domain.NotificationID("n-8"), got[1].ID)
	title, body := got[0].Title()
	assert.Equal(t, "New batch", title)
	assert.Equal(t, "Center Lyon submitted batch B-12", body)
}

func TestCall_MapsHTTPStatusToSentinels(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrForbidden},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusInternalServerError, domain.ErrUpstream},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.Notifications(context.Background(), "tok", domain.ScopeCenter)
		assert.True(t, errors.Is(err, tc.want), "status %d", tc.status)
	}
}

func TestCall_SuccessFalseBecomesUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "batch already closed"})
	})

	err := c.SetBatchStatus(context.Background(), "tok", "b-1", true, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Contains(t, err.Error(), "batch already closed")
}

func TestSaveAlignment_SendsFullConfig(t *testing.T) {
	var gotBody map[string]domain.AlignmentConfig
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	cfg := domain.AlignmentConfig{
		"studentName": {X: 100, Y: 1200, Size: 18},
		"totalMark":   {X: 300, Y: 400, Size: 12},
	}
	require.NoError(t, c.SaveAlignment(context.Background(), "tok", "u-1", cfg))

	assert.Equal(t, cfg, gotBody["alignment_config"])
}

func TestMarkNotificationRead_PathIncludesID(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	require.NoError(t, c.MarkNotificationRead(context.Background(), "tok", "42"))
	assert.Equal(t, "/notifications/42/read", gotPath)
}

func TestUploadCertificateFile_MultipartRoundTrip(t *testing.T) {
	var gotFilename, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/certificates/u-7/upload", r.URL.Path)
		file, header, err := r.FormFile("certificate")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		body, err := io.ReadAll(file)
		require.NoError(t, err)
		gotBody = string(body)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"url":     "https://cdn.example.org/u-7.pdf",
		})
	})

	url, err := c.UploadCertificateFile(context.Background(), "tok", "u-7", "scan.pdf", strings.NewReader("pdf-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/u-7.pdf", url)
	assert.Equal(t, "scan.pdf", gotFilename)
	assert.Equal(t, "pdf-bytes", gotBody)
}

func TestUploadCertificateFile_RejectedEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "bad file"})
	})

	_, err := c.UploadCertificateFile(context.Background(), "tok", "u-7", "scan.pdf", strings.NewReader("x"))

	assert.True(t, errors.Is(err, domain.ErrUpstream))
}
