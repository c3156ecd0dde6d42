// Package materials provides a pluggable interface for materials-property
// lookup services.
package materials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

// PropertyRecord is one material entry returned by a lookup. An empty result
// list means "no data", which is distinct from a lookup error.
type PropertyRecord struct {
	MaterialID    string   `json:"material_id"`
	Formula       string   `json:"formula_pretty"`
	BandGap       *float64 `json:"band_gap,omitempty"`
	Density       *float64 `json:"density,omitempty"`
	EnergyPerAtom *float64 `json:"energy_per_atom,omitempty"`
	IsStable      bool     `json:"is_stable"`
}

// Searcher looks up property records by formula or material name.
type Searcher interface {
	Search(ctx context.Context, query string) ([]PropertyRecord, error)
}

// MPClient queries the Materials Project v3 summary endpoint.
type MPClient struct {
	baseURL string
	rotator *resilience.Rotator
	limiter *resilience.Limiter
	retry   config.RetryConfig
	client  *http.Client
	log     *zap.Logger
}

type mpResponse struct {
	Data []PropertyRecord `json:"data"`
}

// NewMPClient creates a Materials Project client.
func NewMPClient(cfg config.MaterialsConfig, retry config.RetryConfig, rotator *resilience.Rotator, log *zap.Logger) *MPClient {
	return &MPClient{
		baseURL: cfg.BaseURL,
		rotator: rotator,
		limiter: resilience.NewLimiter(0, cfg.RequestsPerSec),
		retry:   retry,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Search returns summary records matching the formula or material name.
func (c *MPClient) Search(ctx context.Context, query string) ([]PropertyRecord, error) {
	if c.rotator == nil {
		return nil, fmt.Errorf("materials: no credentials configured")
	}

	var records []PropertyRecord
	err := resilience.Retry(ctx, c.retry, func() error {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		key, err := c.rotator.Current()
		if err != nil {
			return err
		}

		recs, err := c.search(ctx, key, query)
		if err != nil {
			c.rotator.MarkError()
			return err
		}

		records = recs
		c.rotator.MarkSuccess()
		return nil
	})
	return records, err
}

func (c *MPClient) search(ctx context.Context, key, query string) ([]PropertyRecord, error) {
	u := fmt.Sprintf(
		"%s/materials/summary/?formula=%s&_fields=material_id,formula_pretty,band_gap,density,energy_per_atom,is_stable&_limit=5",
		c.baseURL, url.QueryEscape(query),
	)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("materials request failed: %w", err)
	}
	defer resp.Body.Close()

	// 404 on an unknown formula is "no data", not an error.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("materials error %d: %s", resp.StatusCode, string(b))
	}

	var result mpResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Data, nil
}
