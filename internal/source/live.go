package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/query"
)

// LiveConfig configures the direct call to the published endpoint.
type LiveConfig struct {
	// Endpoint is the GraphQL URL of the live store.
	Endpoint string
	// Token is the bearer credential sent with every request.
	Token string
}

// Validate fails fast on an unusable configuration instead of failing at
// call time mid-cycle.
func (c LiveConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("live: endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("live: invalid endpoint %q", c.Endpoint)
	}
	if c.Token == "" {
		return fmt.Errorf("live: token is required")
	}
	return nil
}

// Live is the read-optimized published-store channel, addressed by
// identifier + language via a direct bearer-credentialed network call.
type Live struct {
	cfg    LiveConfig
	client *http.Client
}

// NewLive validates cfg and wires the live channel. A nil client falls back
// to http.DefaultClient.
func NewLive(cfg LiveConfig, client *http.Client) (*Live, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Live{cfg: cfg, client: client}, nil
}

type liveEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchItems runs one batched lookup against the live endpoint. contextID,
// when present, scopes the request to the tenant.
func (l *Live) FetchItems(ctx context.Context, contextID identifier.ID, specs []query.Spec) (map[string]query.Projection, error) {
	doc, err := query.RenderLive(specs)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"query": doc})
	if err != nil {
		return nil, fmt.Errorf("live: encode request: %w", err)
	}
	endpoint := l.cfg.Endpoint
	if !contextID.IsZero() {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("live: endpoint: %w", err)
		}
		q := u.Query()
		q.Set("contextId", string(contextID))
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("live: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.cfg.Token)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("live: request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("live: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("live: status %d", resp.StatusCode)
	}

	var env liveEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("live: decode response: %w", err)
	}
	if env.Data == nil {
		if len(env.Errors) > 0 {
			return nil, fmt.Errorf("live: query failed: %s", env.Errors[0].Message)
		}
		return nil, fmt.Errorf("live: empty response")
	}
	return query.DecodeLive(env.Data)
}
