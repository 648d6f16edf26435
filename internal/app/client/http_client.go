package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"medisync/internal/app/client/config"
	"medisync/internal/domain/record"
	"medisync/internal/sync"
)

const userAgent = "Medisync-Client/1.0"

// HTTPClient talks to the reconciliation server: auth plus the per-type sync
// transports handed to coordinators.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	token   string
	log     *slog.Logger
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *HTTPClient {
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL: scheme + cfg.ServerAddress,
		log:     log.With("component", "http_client"),
	}
}

func (h *HTTPClient) SetToken(token string) { h.token = token }

func (h *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return &sync.TransportError{Op: "health", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &sync.TransportError{Op: "health", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *HTTPClient) Register(ctx context.Context, email, password string) (string, error) {
	var out tokenResponse
	if err := h.doJSON(ctx, http.MethodPost, "/api/v1/auth/register",
		credentialsRequest{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (h *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	var out tokenResponse
	if err := h.doJSON(ctx, http.MethodPost, "/api/v1/auth/login",
		credentialsRequest{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (h *HTTPClient) Logout(ctx context.Context) error {
	return h.doJSON(ctx, http.MethodPost, "/api/v1/auth/logout", struct{}{}, nil)
}

func (h *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return &sync.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &sync.TransportError{
			Op:  method + " " + path,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &sync.ProtocolError{Op: method + " " + path, Err: err}
	}
	return nil
}

// ForType builds the sync transport for one record type.
func (h *HTTPClient) ForType(cfg sync.Config) sync.Client[record.Envelope] {
	return &syncTransport{
		api:         h,
		recordType:  cfg.RecordType,
		resyncToken: cfg.ResyncToken,
		legacy:      cfg.LegacyCursor,
		log:         h.log.With("record_type", cfg.RecordType),
	}
}

// syncTransport implements the engine's transport contract over the sync
// endpoints for one record type.
type syncTransport struct {
	api         *HTTPClient
	recordType  string
	resyncToken int
	legacy      bool
	log         *slog.Logger
}

type pushRequest struct {
	Records []record.Envelope `json:"records"`
}

type pushResponse struct {
	ValidationErrors []sync.ValidationError `json:"validation_errors"`
}

func (t *syncTransport) Push(ctx context.Context, batch []record.Envelope) (*sync.PushOutcome, error) {
	path := "/api/v1/sync/" + t.recordType + "/push"

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(pushRequest{Records: batch}); err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.api.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	t.setHeaders(req)

	resp, err := t.api.client.Do(req)
	if err != nil {
		return nil, &sync.TransportError{Op: "push " + t.recordType, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &sync.TransportError{
			Op:  "push " + t.recordType,
			Err: fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var out pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &sync.ProtocolError{Op: "push " + t.recordType, Err: err}
	}
	return &sync.PushOutcome{ValidationErrors: out.ValidationErrors}, nil
}

type pullResponse struct {
	Records        []record.Envelope `json:"records"`
	ProcessedSince string            `json:"processed_since"`
}

func (t *syncTransport) Pull(ctx context.Context, limit int, cursor string) (*sync.PullPage[record.Envelope], error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		// Some record types still speak the older timestamp-cursor
		// protocol; the server answers both with the same response shape.
		if t.legacy {
			query.Set("processed_since", cursor)
		} else {
			query.Set("process_token", cursor)
		}
	}
	path := "/api/v1/sync/" + t.recordType + "/pull?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.api.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	t.setHeaders(req)

	resp, err := t.api.client.Do(req)
	if err != nil {
		return nil, &sync.TransportError{Op: "pull " + t.recordType, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &sync.TransportError{
			Op:  "pull " + t.recordType,
			Err: fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var out pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &sync.ProtocolError{Op: "pull " + t.recordType, Err: err}
	}
	return &sync.PullPage[record.Envelope]{
		Payloads:   out.Records,
		NextCursor: out.ProcessedSince,
	}, nil
}

func (t *syncTransport) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if t.api.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.api.token)
	}
	if t.resyncToken > 0 {
		req.Header.Set("X-Resync-Token", strconv.Itoa(t.resyncToken))
	}
}
