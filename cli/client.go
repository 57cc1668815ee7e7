package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tess-backend/handlers"
	"tess-backend/models"

	"github.com/gorilla/websocket"
)

// Client talks to a running TESS server
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// NewClient creates a client for the server at baseURL (http or https)
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     websocket.DefaultDialer,
	}
}

func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Chat sends one message over a fresh WebSocket connection
func (c *Client) Chat(ctx context.Context, message, dossierID string) (*handlers.ChatResponse, error) {
	target, err := c.wsURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(handlers.ChatRequest{Message: message, DossierID: dossierID}); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	var resp handlers.ChatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &resp, nil
}

// envelope is the admin API response shape
type envelope struct {
	Status     string          `json:"status"`
	Error      string          `json:"error"`
	DossierIDs []string        `json:"dossier_ids"`
	Dossier    *models.Dossier `json:"dossier"`
	Removed    int             `json:"removed"`
}

func (c *Client) do(ctx context.Context, method, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if env.Status != handlers.StatusSuccess {
		if env.Error == "" {
			env.Error = resp.Status
		}
		return nil, errors.New(env.Error)
	}
	return &env, nil
}

// ListDossiers returns the stored dossier ids
func (c *Client) ListDossiers(ctx context.Context) ([]string, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/dossiers")
	if err != nil {
		return nil, err
	}
	return env.DossierIDs, nil
}

// GetDossier fetches one dossier
func (c *Client) GetDossier(ctx context.Context, id string) (*models.Dossier, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/dossiers/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return env.Dossier, nil
}

// DeleteDossier removes one dossier
func (c *Client) DeleteDossier(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/dossiers/"+url.PathEscape(id))
	return err
}

// Cleanup removes dossiers not updated within olderThan; zero uses the server default
func (c *Client) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	path := "/api/dossiers/cleanup"
	if olderThan > 0 {
		path += "?older_than=" + url.QueryEscape(olderThan.String())
	}
	env, err := c.do(ctx, http.MethodPost, path)
	if err != nil {
		return 0, err
	}
	return env.Removed, nil
}
