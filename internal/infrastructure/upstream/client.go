package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/edudash-core/internal/domain"
	"github.com/edudash-core/internal/pkg/id"
)

// envelope is the wire wrapper the upstream backend uses for every response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client is the typed REST client for the organisation's backend. All calls
// authenticate with the bearer token passed per request so one client serves
// both the background feeds and pass-through user actions.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithHTTP is used by tests to inject a client bound to a test server.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// Notifications fetches the notification list for a role scope.
func (c *Client) Notifications(ctx context.Context, token string, scope domain.Scope) ([]domain.Notification, error) {
	var out []domain.Notification
	err := c.call(ctx, token, http.MethodGet, fmt.Sprintf("/notifications/%s", scope), nil, &out)
	return out, err
}

// MarkNotificationRead flips is_read server-side for one notification.
func (c *Client) MarkNotificationRead(ctx context.Context, token string, notificationID domain.NotificationID) error {
	return c.call(ctx, token, http.MethodPut, fmt.Sprintf("/notifications/%s/read", notificationID), nil, nil)
}

// Certificates lists all certificate records visible to the caller.
func (c *Client) Certificates(ctx context.Context, token string) ([]domain.CertificateRecord, error) {
	var out []domain.CertificateRecord
	err := c.call(ctx, token, http.MethodGet, "/certificates", nil, &out)
	return out, err
}

// Certificate fetches a single certificate record.
func (c *Client) Certificate(ctx context.Context, token, uploadID string) (*domain.CertificateRecord, error) {
	var out domain.CertificateRecord
	if err := c.call(ctx, token, http.MethodGet, "/certificates/"+uploadID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveAlignment replaces the persisted alignment_config for a certificate.
// The full config is sent, never a per-field diff.
func (c *Client) SaveAlignment(ctx context.Context, token, uploadID string, cfg domain.AlignmentConfig) error {
	body := map[string]interface{}{"alignment_config": cfg}
	return c.call(ctx, token, http.MethodPut, "/certificates/"+uploadID+"/alignment", body, nil)
}

// RegisterCertificateFile records an uploaded template page URL on the
// certificate record. page is 1 or 2.
func (c *Client) RegisterCertificateFile(ctx context.Context, token, uploadID string, page int, url string) error {
	body := map[string]interface{}{"page": page, "url": url}
	return c.call(ctx, token, http.MethodPut, "/certificates/"+uploadID+"/file", body, nil)
}

// SetBatchStatus approves or rejects a pending batch request.
func (c *Client) SetBatchStatus(ctx context.Context, token, batchID string, approve bool, reason string) error {
	body := map[string]interface{}{"approve": approve, "reason": reason}
	return c.call(ctx, token, http.MethodPut, "/batches/"+batchID+"/status", body, nil)
}

// SetCardRequestStatus approves or rejects a card-giveaway request.
func (c *Client) SetCardRequestStatus(ctx context.Context, token, requestID string, approve bool, reason string) error {
	body := map[string]interface{}{"approve": approve, "reason": reason}
	return c.call(ctx, token, http.MethodPut, "/card-requests/"+requestID+"/status", body, nil)
}

// AddInfluencerRequest registers a new influencer-program member.
type AddInfluencerRequest struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Platform string `json:"platform" validate:"required"`
	Handle   string `json:"handle" validate:"required"`
}

func (c *Client) AddInfluencer(ctx context.Context, token string, req AddInfluencerRequest) error {
	return c.call(ctx, token, http.MethodPost, "/influencers", req, nil)
}

// ChangePassword updates the operator's own password.
func (c *Client) ChangePassword(ctx context.Context, token, current, updated string) error {
	body := map[string]string{"current_password": current, "new_password": updated}
	return c.call(ctx, token, http.MethodPost, "/auth/change-password", body, nil)
}

// call issues one JSON request, decodes the envelope and unmarshals data
// into out when non-nil.
func (c *Client) call(ctx context.Context, token, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := id.New()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		slog.Debug("upstream rejected request", "method", method, "path", path, "status", resp.StatusCode, "request_id", reqID)
		return err
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "request failed"
		}
		return fmt.Errorf("%s: %w", msg, domain.ErrUpstream)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode upstream data: %w", err)
		}
	}
	return nil
}

// UploadCertificateFile sends a multipart upload of a template page or
// scanned certificate and returns the stored URL reported by the backend.
func (c *Client) UploadCertificateFile(ctx context.Context, token, uploadID, filename string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("certificate", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/certificates/"+uploadID+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upstream upload: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return "", err
	}
	var env struct {
		envelope
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if !env.Success {
		return "", fmt.Errorf("upload rejected: %w", domain.ErrUpstream)
	}
	return env.URL, nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("credential rejected: %w", domain.ErrUnauthorized)
	case code == http.StatusForbidden:
		return fmt.Errorf("access denied: %w", domain.ErrForbidden)
	case code == http.StatusNotFound:
		return fmt.Errorf("resource missing: %w", domain.ErrNotFound)
	case code >= 400:
		return fmt.Errorf("upstream status %d: %w", code, domain.ErrUpstream)
	}
	return nil
}
