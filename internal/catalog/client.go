package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"supplymatch/internal"
	"supplymatch/internal/config"
	"supplymatch/internal/logging"
)

// Client reads suppliers and supplier-scoped items from a json-server style
// REST catalog (GET /suppliers, GET /items?supplier=<name>).
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg config.Config) *Client {
	rps := cfg.CatalogRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.CatalogTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *Client) ListSuppliers(ctx context.Context) ([]internal.Supplier, error) {
	rows, err := c.fetchRows(ctx, "list suppliers", "", "suppliers", nil)
	if err != nil {
		return nil, err
	}

	out := make([]internal.Supplier, 0, len(rows))
	for _, raw := range rows {
		supplier, err := toSupplier(raw)
		if err != nil {
			logging.FromContext(ctx).Debug().Err(err).Msg("skipping catalog supplier")
			continue
		}
		out = append(out, supplier)
	}
	return out, nil
}

func (c *Client) ListItems(ctx context.Context, supplier string) ([]internal.Item, error) {
	rows, err := c.fetchRows(ctx, "list items", supplier, "items", map[string]string{"supplier": supplier})
	if err != nil {
		return nil, err
	}

	out := make([]internal.Item, 0, len(rows))
	for i, raw := range rows {
		item, err := toItem(raw)
		if errors.Is(err, errNoDescription) {
			logging.FromContext(ctx).Debug().Err(err).Str("supplier", supplier).Msg("skipping catalog item")
			continue
		}
		if err != nil {
			return nil, &internal.CatalogError{Op: "list items", Supplier: supplier, Err: fmt.Errorf("invalid response: item %d: %w", i, err)}
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) fetchRows(ctx context.Context, op, supplier, endpoint string, params map[string]string) ([]map[string]any, error) {
	body, err := c.fetchJSON(ctx, endpoint, params)
	if err != nil {
		var ce *internal.CatalogError
		if errors.As(err, &ce) {
			ce.Op = op
			ce.Supplier = supplier
			return nil, ce
		}
		return nil, &internal.CatalogError{Op: op, Supplier: supplier, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, &internal.CatalogError{Op: op, Supplier: supplier, Err: fmt.Errorf("invalid response: %w", err)}
	}
	return rows, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	baseURL := strings.TrimRight(c.cfg.CatalogAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	attempts := c.cfg.CatalogMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		if token := strings.TrimSpace(c.cfg.CatalogAPIToken); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &internal.CatalogError{StatusCode: resp.StatusCode, Err: fmt.Errorf("body=%s", truncate(string(body), 200))}
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				continue
			}
			return nil, lastErr
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("catalog request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toSupplier(raw map[string]any) (internal.Supplier, error) {
	name, _ := raw["name"].(string)
	if strings.TrimSpace(name) == "" {
		return internal.Supplier{}, errors.New("empty supplier name")
	}
	return internal.Supplier{ID: toID(raw["id"]), Name: name}, nil
}

var errNoDescription = errors.New("empty item description")

// toItem rejects a price or rate that is present but not a number; a zero
// would otherwise be copied into the output as if it were the catalog price.
func toItem(raw map[string]any) (internal.Item, error) {
	description, _ := raw["description"].(string)
	if strings.TrimSpace(description) == "" {
		return internal.Item{}, errNoDescription
	}
	supplier, _ := raw["supplier"].(string)
	price, err := toFloat(raw["price"])
	if err != nil {
		return internal.Item{}, fmt.Errorf("%q price: %w", description, err)
	}
	rate, err := toFloat(raw["rate"])
	if err != nil {
		return internal.Item{}, fmt.Errorf("%q rate: %w", description, err)
	}
	return internal.Item{
		ID:          toID(raw["id"]),
		Supplier:    supplier,
		Description: description,
		Price:       price,
		Rate:        rate,
	}, nil
}

// toID keeps numbers as numbers and strings as strings.
func toID(v any) internal.ID {
	switch t := v.(type) {
	case string:
		return internal.TextID(t)
	case json.Number:
		return internal.ID(t.String())
	case float64:
		return internal.ID(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		return internal.ID(strconv.Itoa(t))
	default:
		return ""
	}
}

// toFloat treats a missing or empty value as 0.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("not a number: %v", t)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
