package gateway

import (
	"context"
	"net/http"
)

// ModelInfo describes one entry from the aggregator's model catalog.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
}

// CreditInfo is the normalized credit accounting for the API key.
type CreditInfo struct {
	TotalCredits float64 `json:"total_credits"`
	TotalUsage   float64 `json:"total_usage"`
	Remaining    float64 `json:"remaining"`
}

// ListModels fetches the model catalog. The catalog is cached after the first
// successful fetch; subsequent calls return the cached copy.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	c.modelsMu.Lock()
	defer c.modelsMu.Unlock()

	if c.modelsCache != nil {
		return c.modelsCache, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []ModelInfo `json:"data"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	c.modelsCache = resp.Data
	return c.modelsCache, nil
}

// Credits returns the key's credit balance normalized to
// {TotalCredits, TotalUsage, Remaining}.
func (c *Client) Credits(ctx context.Context) (*CreditInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/credits", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			TotalCredits float64 `json:"total_credits"`
			TotalUsage   float64 `json:"total_usage"`
		} `json:"data"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	return &CreditInfo{
		TotalCredits: resp.Data.TotalCredits,
		TotalUsage:   resp.Data.TotalUsage,
		Remaining:    resp.Data.TotalCredits - resp.Data.TotalUsage,
	}, nil
}
