// Package api is the HTTP client for the backupd server API.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/vkozyrev/backupd/internal/common"
)

// Session is the client-side view of a register/login response.
type Session struct {
	UserID        string
	AccessToken   string
	RefreshToken  string
	EncryptionKey []byte
}

// Backup mirrors the server's backup listing entry.
type Backup struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadResult reports how the server handled an upload.
type UploadResult struct {
	Backup
	Status string `json:"status"`
}

// Client talks to the server API. It keeps the token pair internally and
// transparently refreshes the access token once when a call comes back 401.
type Client struct {
	baseURL      string
	http         *http.Client
	accessToken  string
	refreshToken string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetTokens primes the client with a previously obtained token pair.
func (c *Client) SetTokens(access, refresh string) {
	c.accessToken = access
	c.refreshToken = refresh
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// mapStatus converts HTTP statuses into the shared sentinel errors so
// callers can use errors.Is regardless of the transport.
func mapStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return common.ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusConflict:
		if strings.Contains(string(body), "license") {
			return common.ErrAlreadyActive
		}
		return common.ErrConflict
	default:
		return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, authed bool) (*http.Response, error) {
	var buf []byte
	if body != nil {
		var err error
		buf, err = io.ReadAll(body)
		if err != nil {
			return nil, err
		}
	}

	send := func() (*http.Response, error) {
		var rd io.Reader
		if buf != nil {
			rd = bytes.NewReader(buf)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if authed && c.accessToken != "" {
			req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.accessToken)
		}
		return c.http.Do(req)
	}

	resp, err := send()
	if err != nil {
		return nil, err
	}

	// One transparent refresh-and-retry on an expired access token.
	if authed && resp.StatusCode == http.StatusUnauthorized && c.refreshToken != "" {
		resp.Body.Close()
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
		return send()
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, authed bool) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(raw), "application/json", authed)
}

func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if err := mapStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type sessionDTO struct {
	UserID        string `json:"user_id"`
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	EncryptionKey string `json:"encryption_key"`
}

func (c *Client) session(resp *http.Response) (*Session, error) {
	var dto sessionDTO
	if err := decodeJSON(resp, &dto); err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(dto.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("malformed encryption key: %w", err)
	}
	c.SetTokens(dto.AccessToken, dto.RefreshToken)
	return &Session{
		UserID:        dto.UserID,
		AccessToken:   dto.AccessToken,
		RefreshToken:  dto.RefreshToken,
		EncryptionKey: key,
	}, nil
}

// Register creates an account and primes the client with its tokens.
func (c *Client) Register(ctx context.Context, login, password string) (*Session, error) {
	resp, err := c.postJSON(ctx, "/api/register", map[string]string{"login": login, "password": password}, false)
	if err != nil {
		return nil, err
	}
	return c.session(resp)
}

// Login authenticates and primes the client with the account's tokens.
func (c *Client) Login(ctx context.Context, login, password string) (*Session, error) {
	resp, err := c.postJSON(ctx, "/api/login", map[string]string{"login": login, "password": password}, false)
	if err != nil {
		return nil, err
	}
	return c.session(resp)
}

// Refresh rotates the refresh token and replaces the stored pair.
func (c *Client) Refresh(ctx context.Context) error {
	resp, err := c.postJSON(ctx, "/api/auth/refresh", map[string]string{"refresh_token": c.refreshToken}, false)
	if err != nil {
		return err
	}
	var dto struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(resp, &dto); err != nil {
		return err
	}
	c.SetTokens(dto.AccessToken, dto.RefreshToken)
	return nil
}

// GenerateLicense asks the server for a fresh activation key.
func (c *Client) GenerateLicense(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/licenses/generate", nil, "", true)
	if err != nil {
		return "", err
	}
	var dto struct {
		LicenseKey string `json:"license_key"`
	}
	if err := decodeJSON(resp, &dto); err != nil {
		return "", err
	}
	return dto.LicenseKey, nil
}

// ActivateLicense claims the activation key for the logged-in user.
func (c *Client) ActivateLicense(ctx context.Context, key string) error {
	resp, err := c.postJSON(ctx, "/api/licenses/activate", map[string]string{"license_key": key}, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return mapStatus(resp)
}

// LicenseDocument downloads the signed license document.
func (c *Client) LicenseDocument(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/licenses/document", nil, "", true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := mapStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// VerifyLicense submits a license document for server-side verification.
func (c *Client) VerifyLicense(ctx context.Context, document []byte) (bool, error) {
	resp, err := c.postJSON(ctx, "/api/licenses/verify", map[string]string{"document": string(document)}, false)
	if err != nil {
		return false, err
	}
	var dto struct {
		Valid bool `json:"valid"`
	}
	if err := decodeJSON(resp, &dto); err != nil {
		return false, err
	}
	return dto.Valid, nil
}

// PublicKey fetches the server's license verification key in PEM form.
func (c *Client) PublicKey(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/licenses/public-key", nil, "", false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := mapStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// UploadBackup sends an (already encrypted) payload as a multipart upload.
func (c *Client) UploadBackup(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/backups/", &buf, mw.FormDataContentType(), true)
	if err != nil {
		return nil, err
	}
	var out UploadResult
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadBackup fetches a stored payload.
func (c *Client) DownloadBackup(ctx context.Context, filename string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/backups/"+filename, nil, "", true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := mapStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// ListBackups returns the account's stored backups.
func (c *Client) ListBackups(ctx context.Context) ([]Backup, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/backups/", nil, "", true)
	if err != nil {
		return nil, err
	}
	var out []Backup
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBackup removes a stored backup.
func (c *Client) DeleteBackup(ctx context.Context, filename string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/backups/"+filename, nil, "", true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return mapStatus(resp)
}
