// Package content sources the bug/solution text pairs a board is built
// from. The provider is treated as unreliable: any failure degrades to the
// deterministic built-in set so card sourcing can never abort game creation.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bugmatch/bugmatch/internal/models"
)

// Pair is one bug snippet and the solution snippet that fixes it.
type Pair struct {
	Bug        string            `json:"bug"`
	Solution   string            `json:"solution"`
	Difficulty models.Difficulty `json:"difficulty"`
}

// Provider generates pairs for a new board. Implementations must respect
// the context deadline; callers treat short or malformed output as failure.
type Provider interface {
	GeneratePairs(ctx context.Context, count int) ([]Pair, error)
}

// HTTPProvider fetches generated pairs from an external content API.
type HTTPProvider struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPProvider builds a provider against the given endpoint. The
// embedded client timeout is a backstop; per-call deadlines come from the
// caller's context.
func NewHTTPProvider(endpoint string) *HTTPProvider {
	return &HTTPProvider{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type generateRequest struct {
	Count int `json:"count"`
}

type generateResponse struct {
	Pairs []Pair `json:"pairs"`
}

// GeneratePairs POSTs {"count": N} to the content API and expects exactly N
// pairs back.
func (p *HTTPProvider) GeneratePairs(ctx context.Context, count int) ([]Pair, error) {
	body, err := json.Marshal(generateRequest{Count: count})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content api returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("content api returned malformed body: %w", err)
	}
	if len(out.Pairs) < count {
		return nil, fmt.Errorf("content api returned %d pairs, wanted %d", len(out.Pairs), count)
	}
	for i, pr := range out.Pairs[:count] {
		if pr.Bug == "" || pr.Solution == "" {
			return nil, fmt.Errorf("content api returned empty pair at index %d", i)
		}
	}
	return out.Pairs[:count], nil
}
