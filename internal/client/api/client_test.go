package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkozyrev/backupd/internal/common"
)

func TestRegisterAndLogin(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req["login"])

		if r.URL.Path == "/api/register" {
			w.WriteHeader(http.StatusCreated)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":        "u1",
			"access_token":   "at",
			"refresh_token":  "rt",
			"encryption_key": key,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	sess, err := c.Register(context.Background(), "alice", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Len(t, sess.EncryptionKey, 32)
	assert.Equal(t, "at", c.accessToken)

	sess, err = c.Login(context.Background(), "alice", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "rt", sess.RefreshToken)
}

func TestAuthedRequestCarriesBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"license_key": "k1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.SetTokens("token-1", "refresh-1")

	key, err := c.GenerateLicense(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k1", key)
}

func TestRefreshRetryOn401(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/licenses/generate":
			calls++
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"license_key": "k1"})
		case "/api/auth/refresh":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "old-refresh", req["refresh_token"])
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access_token":  "fresh",
				"refresh_token": "fresh-refresh",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.SetTokens("stale", "old-refresh")

	key, err := c.GenerateLicense(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k1", key)
	assert.Equal(t, 2, calls, "expected original call plus one retry")
	assert.Equal(t, "fresh-refresh", c.refreshToken)
}

func TestActivateLicense_Statuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"ok", http.StatusOK, `{"license_key":"k"}`, nil},
		{"taken", http.StatusConflict, `{"error":"license already activated"}`, common.ErrAlreadyActive},
		{"unknown", http.StatusNotFound, `{"error":"not found"}`, common.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second)
			c.SetTokens("t", "")

			err := c.ActivateLicense(context.Background(), "3f0c72f5-9f3a-4f56-b7a4-3f2f3bb43f10")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestUploadBackup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "db.sqlite", header.Filename)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"filename": "db.sqlite",
			"size":     4,
			"status":   "stored",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.SetTokens("t", "")

	res, err := c.UploadBackup(context.Background(), "db.sqlite", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "stored", res.Status)
	assert.Equal(t, "db.sqlite", res.Filename)
}

func TestDownloadBackup_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.SetTokens("t", "")

	_, err := c.DownloadBackup(context.Background(), "missing.bin")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestVerifyLicense(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req["document"], "USER:")
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	valid, err := c.VerifyLicense(context.Background(), []byte("USER:u1;LICENSE:k\nc2ln"))
	require.NoError(t, err)
	assert.True(t, valid)
}
