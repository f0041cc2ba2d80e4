// Package client implements the viewer-side analysis lifecycle: an HTTP
// client for the analysis API and a manager that tracks per-content state,
// deduplicates requests, and escalates from the quick signal to the deep
// verdict on demand.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contextlens/core/internal/models"
)

// ErrQuotaExceeded mirrors the server's distinct quota denial: no verdict,
// not an analysis failure.
var ErrQuotaExceeded = errors.New("daily analysis quota exceeded")

// QuickRequest is the quick-tier wire payload.
type QuickRequest struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}

// DeepRequest is the deep-tier wire payload.
type DeepRequest struct {
	ID              string                  `json:"id"`
	Text            string                  `json:"text"`
	Author          string                  `json:"author,omitempty"`
	Media           models.MediaDescriptors `json:"media"`
	CommentExcerpts []string                `json:"commentExcerpts,omitempty"`
}

// QuotaStatus is the read-only usage surface.
type QuotaStatus struct {
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	ResetsAt  string `json:"resetsAt"`
}

// AnalysisAPI is the wire contract the lifecycle manager depends on.
type AnalysisAPI interface {
	Quick(ctx context.Context, req QuickRequest) (*models.QuickVerdict, error)
	Deep(ctx context.Context, req DeepRequest) (*models.DeepVerdict, error)
}

// API is the HTTP implementation of AnalysisAPI.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPI creates an API client. token may be empty for IP-scoped quota.
func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Quick requests the cheap tier.
func (a *API) Quick(ctx context.Context, req QuickRequest) (*models.QuickVerdict, error) {
	var verdict models.QuickVerdict
	if err := a.post(ctx, "/api/v1/analysis/quick", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Deep requests the full tier.
func (a *API) Deep(ctx context.Context, req DeepRequest) (*models.DeepVerdict, error) {
	var verdict models.DeepVerdict
	if err := a.post(ctx, "/api/v1/analysis/deep", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Quota reads the remaining budget without triggering analysis.
func (a *API) Quota(ctx context.Context) (*QuotaStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/v1/analysis/quota", nil)
	if err != nil {
		return nil, err
	}
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}
	var status QuotaStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (a *API) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, respBody)
	}
	return json.Unmarshal(respBody, out)
}

func (a *API) setHeaders(req *http.Request) {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
}

func apiError(status int, body []byte) error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &envelope)
	if status == http.StatusTooManyRequests && envelope.Error == "quota_exceeded" {
		return ErrQuotaExceeded
	}
	msg := envelope.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return fmt.Errorf("analysis api status %d: %s", status, msg)
}
