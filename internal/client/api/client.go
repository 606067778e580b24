// Package api is the thin HTTP client the operator CLI talks to the server
// with.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken installs the bearer token used on subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error       apiError `json:"error"`
			RecoveryKey string   `json:"recovery_key"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
			if e.RecoveryKey != "" {
				return fmt.Errorf("%s (recovery key: %s)", e.Error.Message, e.RecoveryKey)
			}
			return fmt.Errorf("%s", e.Error.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (c *Client) OpenSession(ctx context.Context, principalID, displayName string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/session", map[string]string{
		"principal_id": principalID,
		"display_name": displayName,
	}, &resp)
	if err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := c.do(ctx, http.MethodGet, "/v1/status", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) SetCredential(ctx context.Context, current, credential []byte) error {
	return c.do(ctx, http.MethodPost, "/v1/credential", map[string]string{
		"current_credential": string(current),
		"credential":         string(credential),
	}, nil)
}

func (c *Client) VerifyCredential(ctx context.Context, credential []byte) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, http.MethodPost, "/v1/credential/verify", map[string]string{
		"credential": string(credential),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/heartbeat", struct{}{}, nil)
}

func (c *Client) SetThreshold(ctx context.Context, hours int) error {
	return c.do(ctx, http.MethodPut, "/v1/threshold", map[string]int{"hours": hours}, nil)
}

// AcceptInvite confirms an owner's invitation, binding the caller as one of
// the owner's trustees.
func (c *Client) AcceptInvite(ctx context.Context, ownerID, displayName string) error {
	return c.do(ctx, http.MethodPost, "/v1/trustees", map[string]string{
		"principal_id": ownerID,
		"display_name": displayName,
	}, nil)
}

func (c *Client) ListTrustees(ctx context.Context) ([]map[string]any, error) {
	var resp struct {
		Trustees []map[string]any `json:"trustees"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/trustees", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Trustees, nil
}

func (c *Client) RevokeTrustee(ctx context.Context, trusteeID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/trustees/"+trusteeID, nil, nil)
}

func (c *Client) AddEntry(ctx context.Context, kind, content, storageKey string, recipients []string) error {
	return c.do(ctx, http.MethodPost, "/v1/vault", map[string]any{
		"content_kind":  kind,
		"content":       content,
		"storage_key":   storageKey,
		"recipient_ids": recipients,
	}, nil)
}

func (c *Client) ListEntries(ctx context.Context) ([]map[string]any, error) {
	var resp struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/vault", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) RevealEntry(ctx context.Context, id int64) (map[string]any, error) {
	var resp map[string]any
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/vault/%d/reveal", id), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) LockRequests(ctx context.Context) ([]map[string]any, error) {
	var resp struct {
		Locked []map[string]any `json:"locked"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/lock/requests", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locked, nil
}

func (c *Client) Unlock(ctx context.Context, principalID, recoveryKey string) (string, error) {
	var resp struct {
		Outcome string `json:"outcome"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/lock/unlock", map[string]string{
		"principal_id": principalID,
		"recovery_key": recoveryKey,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Outcome, nil
}
