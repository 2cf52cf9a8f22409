package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"supplymatch/internal"
	"supplymatch/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func testConfig() config.Config {
	cfg, _ := config.Load()
	cfg.CatalogAPIBaseURL = "http://catalog.test/"
	cfg.CatalogRateLimitRPS = 1000
	cfg.CatalogMaxAttempts = 3
	return cfg
}

func TestListSuppliersWithRetry(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/suppliers" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			attempt++
			if attempt == 1 {
				return jsonResponse(http.StatusServiceUnavailable, `{"error":"boom"}`), nil
			}
			return jsonResponse(http.StatusOK, `[{"id":1,"name":"Acme Co"},{"id":"b-2","name":"Beta Ltd"},{"id":3,"name":""}]`), nil
		}),
	}

	suppliers, err := client.ListSuppliers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
	if len(suppliers) != 2 {
		t.Fatalf("len=%d", len(suppliers))
	}
	if suppliers[0].ID != "1" || suppliers[0].Name != "Acme Co" || suppliers[1].ID != internal.TextID("b-2") {
		t.Fatalf("unexpected suppliers: %+v", suppliers)
	}
}

func TestListItemsQueriesBySupplier(t *testing.T) {
	cfg := testConfig()
	cfg.CatalogAPIToken = "secret"
	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/items" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("supplier"); got != "Acme & Sons" {
				t.Fatalf("supplier query=%q", got)
			}
			if r.Header.Get("Authorization") != "Bearer secret" {
				t.Fatalf("missing auth header")
			}
			return jsonResponse(http.StatusOK, `[
				{"id":1,"supplier":"Acme & Sons","description":"Dump Truck","price":100,"rate":5},
				{"id":2,"supplier":"Acme & Sons","description":"Excavator","price":"250.5","rate":7.5}
			]`), nil
		}),
	}

	items, err := client.ListItems(context.Background(), "Acme & Sons")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("len=%d", len(items))
	}
	want := internal.Item{ID: "1", Supplier: "Acme & Sons", Description: "Dump Truck", Price: 100, Rate: 5}
	if items[0] != want {
		t.Fatalf("got %+v want %+v", items[0], want)
	}
	if items[1].Price != 250.5 || items[1].Rate != 7.5 {
		t.Fatalf("unexpected numbers: %+v", items[1])
	}
}

func TestCatalogIDsKeepTheirJSONType(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `[
				{"id":1,"supplier":"Acme Co","description":"Dump Truck","price":100,"rate":5},
				{"id":"1","supplier":"Acme Co","description":"Excavator","price":200,"rate":8}
			]`), nil
		}),
	}

	items, err := client.ListItems(context.Background(), "Acme Co")
	if err != nil {
		t.Fatal(err)
	}
	record := internal.Combine(items[0], internal.LineItem{Quantity: "3"})
	blob, err := json.Marshal([]internal.CombinedRecord{record, internal.Combine(items[1], internal.LineItem{})})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(blob), `"id":1,`) || !strings.Contains(string(blob), `"id":"1",`) {
		t.Fatalf("ids not preserved: %s", blob)
	}
	if items[0].ID.String() != "1" || items[1].ID.String() != "1" {
		t.Fatalf("unexpected display ids: %q %q", items[0].ID, items[1].ID)
	}
}

func TestCatalogFailuresAreCatalogUnavailable(t *testing.T) {
	cases := []struct {
		name string
		rt   roundTripFunc
	}{
		{
			name: "transport error",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
		},
		{
			name: "client error",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusNotFound, `{}`), nil
			},
		},
		{
			name: "invalid json",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"not":"a list"}`), nil
			},
		},
		{
			name: "price is not a number",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"id":1,"supplier":"Acme Co","description":"Dump Truck","price":"TBA","rate":5}]`), nil
			},
		},
		{
			name: "rate is an object",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"id":1,"supplier":"Acme Co","description":"Dump Truck","price":100,"rate":{"x":1}}]`), nil
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.CatalogMaxAttempts = 1
			client := NewClient(cfg)
			client.httpClient = &http.Client{Transport: tc.rt}

			_, err := client.ListItems(context.Background(), "Acme Co")
			if !errors.Is(err, internal.ErrCatalogUnavailable) {
				t.Fatalf("expected catalog unavailable, got %v", err)
			}
			var ce *internal.CatalogError
			if !errors.As(err, &ce) || ce.Op != "list items" || ce.Supplier != "Acme Co" {
				t.Fatalf("unexpected error detail: %#v", err)
			}
		})
	}
}
