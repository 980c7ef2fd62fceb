// Package uploads hands out signed upload URLs for application documents and
// deletes stored objects. Files live in external object storage; the API never
// proxies file bytes.
package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"greenh2-backend/internal/pkg/apperr"
)

// StorageClient defines what we need from the storage backend.
type StorageClient interface {
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
	DeleteObject(ctx context.Context, bucket, path string) error
}

// HTTPClient is a StorageClient backed by the storage HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

type signedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"`
	Path           string `json:"path"`
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return c.Client
}

func (c *HTTPClient) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	if c.BaseURL == "" || c.SecretKey == "" {
		return "", fmt.Errorf("storage: STORAGE_URL and STORAGE_SECRET_KEY must be set")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, bucket, path)

	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"expiresIn": 3600,
		"upsert":    false,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("storage request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage error: status %d body: %s", resp.StatusCode, string(respBody))
	}

	var data signedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("storage response decode: %w", err)
	}
	// The API can return signedUrl, signed_url, or a relative url.
	if data.SignedURL != "" {
		return data.SignedURL, nil
	}
	if data.SignedURLSnake != "" {
		return data.SignedURLSnake, nil
	}
	if data.URL != "" {
		u := data.URL
		if u[0] != '/' {
			u = "/" + u
		}
		return base + u, nil
	}
	return "", fmt.Errorf("storage returned no signed URL, body: %s", string(respBody))
}

func (c *HTTPClient) DeleteObject(ctx context.Context, bucket, path string) error {
	if c.BaseURL == "" || c.SecretKey == "" {
		return fmt.Errorf("storage: STORAGE_URL and STORAGE_SECRET_KEY must be set")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", base, bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("storage request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage error: status %d body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Service encapsulates upload logic.
type Service struct {
	Client     StorageClient
	StorageURL string
}

// UploadResult is what the client needs to push the file and reference it
// afterwards: PublicID is stored in the application's documents array.
type UploadResult struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	PublicID  string `json:"public_id"`
}

// GetSignedUploadURL generates a signed upload URL with a collision-free path.
func (s *Service) GetSignedUploadURL(ctx context.Context, bucket, fileName string) (*UploadResult, error) {
	if fileName == "" {
		return nil, apperr.New(apperr.Validation, "file_name is required")
	}
	path := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), fileName)

	signedURL, err := s.Client.CreateSignedUploadURL(ctx, bucket, path)
	if err != nil {
		return nil, apperr.Wrap(apperr.GatewayRejected, "Failed to generate upload URL", err)
	}

	publicBase := strings.TrimRight(s.StorageURL, "/")
	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", publicBase, bucket, path)

	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: publicURL,
		PublicID:  path,
	}, nil
}

// Delete removes a stored object by its public id.
func (s *Service) Delete(ctx context.Context, bucket, publicID string) error {
	if publicID == "" {
		return apperr.New(apperr.Validation, "public_id is required")
	}
	if err := s.Client.DeleteObject(ctx, bucket, publicID); err != nil {
		return apperr.Wrap(apperr.GatewayRejected, "Failed to delete file", err)
	}
	return nil
}
