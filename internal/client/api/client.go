// Package api provides a typed client for the imagedrop HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/imagedrop/imagedrop/internal/model"
)

// APIError is a structured error returned by the server
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d %s): %s", e.Status, e.Kind, e.Message)
}

// PresignedUpload mirrors the server's presign response
type PresignedUpload struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Key    string `json:"key"`
}

// FilePage mirrors the server's paginated listing response
type FilePage struct {
	Files      []*model.File `json:"files"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates an API client. The token is a personal access token or
// session JWT sent as an Authorization bearer value.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// CreatePresignedURL asks the server for a one-shot upload capability
func (c *Client) CreatePresignedURL(ctx context.Context, filename, contentType string, size int64) (*PresignedUpload, error) {
	body := map[string]any{
		"filename":    filename,
		"contentType": contentType,
		"size":        size,
	}

	var out PresignedUpload
	err := c.doJSON(ctx, http.MethodPost, "/api/files/presign", body, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// SaveFile confirms a completed upload; path is the full object URL
// returned by the storage PUT
func (c *Client) SaveFile(ctx context.Context, name, path, contentType string) (*model.File, error) {
	body := map[string]any{
		"name": name,
		"path": path,
		"type": contentType,
	}

	var out model.File
	err := c.doJSON(ctx, http.MethodPost, "/api/files", body, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// ListFiles fetches the whole gallery, newest first
func (c *Client) ListFiles(ctx context.Context) ([]*model.File, error) {
	var out []*model.File
	err := c.doJSON(ctx, http.MethodGet, "/api/files", nil, &out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ListFilesPage fetches one page; pass the previous page's cursor or ""
func (c *Client) ListFilesPage(ctx context.Context, limit int, cursor string) (*FilePage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var out FilePage
	err := c.doJSON(ctx, http.MethodGet, "/api/files/page?"+q.Encode(), nil, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// DeleteFile removes a gallery entry
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(id), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	err := json.NewDecoder(resp.Body).Decode(&envelope)
	if err != nil || envelope.Error.Kind == "" {
		return &APIError{Status: resp.StatusCode, Kind: "unknown", Message: resp.Status}
	}

	apiErr := envelope.Error
	apiErr.Status = resp.StatusCode
	return &apiErr
}
