package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/breaker"
	"github.com/swissconsulthub/intake-engine/internal/domain"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

// TokenProvider supplies the bearer token for admin-context calls. The
// public intake flow runs without one.
type TokenProvider func() string

// Client is the REST implementation of RequestStore. Every call runs through
// the circuit breaker and carries a fixed timeout; a timeout is a breaker
// failure like any other and surfaces as a distinguishable error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *breaker.Breaker
	token      TokenProvider
	log        *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, b *breaker.Breaker, token TokenProvider, log *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    b,
		token:      token,
		log:        log,
	}
}

// envelope mirrors the backend's JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (c *Client) Create(ctx context.Context, request *domain.ConsultingRequest) (uuid.UUID, error) {
	var out struct {
		ID uuid.UUID `json:"id"`
	}
	err := c.call(ctx, http.MethodPost, "/api/v1/requests", request, &out)
	if err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

func (c *Client) Update(ctx context.Context, id uuid.UUID, patch domain.UpdateRequestPatch) error {
	return c.call(ctx, http.MethodPatch, "/api/v1/requests/"+id.String(), patch, nil)
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/requests/"+id.String(), nil, nil)
}

func (c *Client) GetByID(ctx context.Context, id uuid.UUID) (*domain.ConsultingRequest, error) {
	var out domain.ConsultingRequest
	if err := c.call(ctx, http.MethodGet, "/api/v1/requests/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAll(ctx context.Context) ([]*domain.ConsultingRequest, error) {
	var out []*domain.ConsultingRequest
	if err := c.call(ctx, http.MethodGet, "/api/v1/requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BulkUpdate(ctx context.Context, ids []uuid.UUID, status string) error {
	body := domain.BulkRequestAction{IDs: ids, Status: status}
	return c.call(ctx, http.MethodPost, "/api/v1/requests/bulk/update", body, nil)
}

func (c *Client) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	body := domain.BulkRequestAction{IDs: ids}
	return c.call(ctx, http.MethodPost, "/api/v1/requests/bulk/delete", body, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.do(ctx, method, path, body, out)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return customError.WrapBackendError(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return customError.WrapBackendError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return customError.WrapRequestTimeout(err)
		}
		return customError.WrapBackendError(err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return customError.WrapBackendError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return customError.WrapRequestNotFound(msg)
		}
		return customError.WrapBackendError(fmt.Errorf("backend returned %d: %s", resp.StatusCode, msg))
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return customError.WrapBackendError(err)
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
