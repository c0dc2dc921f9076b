package githubapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writePrivateKeyPEM(t *testing.T, dir string) string {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() unexpected error: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	path := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		t.Fatalf("os.WriteFile() unexpected error: %v", err)
	}
	return path
}

func TestNewTokenHTTPClient(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "empty_token", token: "", wantErr: true},
		{name: "whitespace_token", token: "   ", wantErr: true},
		{name: "valid_token", token: "ghp_abc123"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewTokenHTTPClient(context.Background(), tc.token, 15*time.Second)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NewTokenHTTPClient() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTokenHTTPClient() unexpected error: %v", err)
			}
			if client == nil || client.Transport == nil {
				t.Fatalf("client or transport is nil")
			}
			if client.Timeout != 15*time.Second {
				t.Fatalf("client.Timeout = %s, want 15s", client.Timeout)
			}
		})
	}
}

func TestNewInstallationHTTPClient(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	validKeyPath := writePrivateKeyPEM(t, tempDir)
	invalidKeyPath := filepath.Join(tempDir, "invalid.pem")
	if err := os.WriteFile(invalidKeyPath, []byte("not-a-key"), 0o600); err != nil {
		t.Fatalf("os.WriteFile(invalid) unexpected error: %v", err)
	}

	testCases := []struct {
		name        string
		config      InstallationAuthConfig
		wantErr     bool
		errContains string
	}{
		{
			name: "invalid_app_id",
			config: InstallationAuthConfig{
				AppID:          0,
				InstallationID: 1,
				PrivateKeyPath: validKeyPath,
			},
			wantErr:     true,
			errContains: "app id",
		},
		{
			name: "invalid_installation_id",
			config: InstallationAuthConfig{
				AppID:          1,
				InstallationID: 0,
				PrivateKeyPath: validKeyPath,
			},
			wantErr:     true,
			errContains: "installation id",
		},
		{
			name: "missing_private_key_path",
			config: InstallationAuthConfig{
				AppID:          1,
				InstallationID: 1,
				PrivateKeyPath: "",
			},
			wantErr:     true,
			errContains: "private key path",
		},
		{
			name: "invalid_private_key_file",
			config: InstallationAuthConfig{
				AppID:          1,
				InstallationID: 1,
				PrivateKeyPath: invalidKeyPath,
			},
			wantErr:     true,
			errContains: "create github app transport",
		},
		{
			name: "valid_configuration",
			config: InstallationAuthConfig{
				AppID:          1,
				InstallationID: 1,
				PrivateKeyPath: validKeyPath,
				Timeout:        15 * time.Second,
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewInstallationHTTPClient(tc.config)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NewInstallationHTTPClient() expected error, got nil")
				}
				if tc.errContains != "" && !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("error = %q, missing %q", err.Error(), tc.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("NewInstallationHTTPClient() unexpected error: %v", err)
			}
			if client == nil || client.Transport == nil {
				t.Fatalf("client or transport is nil")
			}
			if client.Timeout != tc.config.Timeout {
				t.Fatalf("client.Timeout = %s, want %s", client.Timeout, tc.config.Timeout)
			}
		})
	}
}

func TestVerifyCredentials(t *testing.T) {
	t.Parallel()

	t.Run("reports_core_quota", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/rate_limit" {
				t.Errorf("path = %q, want /rate_limit", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"resources":{"core":{"limit":5000,"remaining":4998,"reset":1700000000}}}`))
		}))
		defer server.Close()

		quota, err := VerifyCredentials(context.Background(), server.Client(), server.URL)
		if err != nil {
			t.Fatalf("VerifyCredentials() unexpected error: %v", err)
		}
		if quota.Limit != 5000 || quota.Remaining != 4998 {
			t.Fatalf("quota = %+v, want limit 5000 remaining 4998", quota)
		}
		if quota.ResetAt.Unix() != 1700000000 {
			t.Fatalf("ResetAt = %v, want unix 1700000000", quota.ResetAt)
		}
	})

	t.Run("upstream_failure_returns_error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
		}))
		defer server.Close()

		_, err := VerifyCredentials(context.Background(), server.Client(), server.URL)
		if err == nil {
			t.Fatalf("VerifyCredentials() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "rate limit preflight") {
			t.Fatalf("error = %q, missing preflight context", err.Error())
		}
	})

	t.Run("invalid_base_url", func(t *testing.T) {
		t.Parallel()

		_, err := VerifyCredentials(context.Background(), &http.Client{}, "not-a-url")
		if err == nil {
			t.Fatalf("VerifyCredentials() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "parse github api base url") {
			t.Fatalf("error = %q, missing parse context", err.Error())
		}
	})
}
