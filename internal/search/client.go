package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/gogotex/gateway/pkg/metrics"
)

// Config configures the Elasticsearch client once at startup.
type Config struct {
	Addresses []string
	// Timeout bounds every call, retries included.
	Timeout time.Duration
	// MaxRetries is handed to the transport; zero disables retries.
	MaxRetries int
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client implements Engine on top of the official Elasticsearch client.
type Client struct {
	es      *elasticsearch.Client
	timeout time.Duration
}

var _ Engine = (*Client)(nil)

// NewClient builds a client. No request is sent until the first call.
func NewClient(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.MaxRetries == 0,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Client{es: es, timeout: cfg.Timeout}, nil
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return classify(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError(res)
	}
	return nil
}

func (c *Client) IndexExists(ctx context.Context, name string) (ok bool, err error) {
	defer func() { observe("exists", err) }()
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, classify(err)
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, decodeError(res)
}

func (c *Client) CreateIndex(ctx context.Context, name string, settings, mappings map[string]any) (err error) {
	defer func() { observe("create_index", err) }()
	ctx, cancel := c.bound(ctx)
	defer cancel()

	opts := []func(*esapi.IndicesCreateRequest){c.es.Indices.Create.WithContext(ctx)}
	body := map[string]any{}
	if settings != nil {
		body["settings"] = settings
	}
	if mappings != nil {
		body["mappings"] = mappings
	}
	if len(body) > 0 {
		opts = append(opts, c.es.Indices.Create.WithBody(esutil.NewJSONReader(body)))
	}

	res, err := c.es.Indices.Create(name, opts...)
	if err != nil {
		return classify(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError(res)
	}
	return nil
}

func (c *Client) ListIndices(ctx context.Context) (names []string, err error) {
	defer func() { observe("list_indices", err) }()
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := c.es.Indices.GetAlias(c.es.Indices.GetAlias.WithContext(ctx))
	if err != nil {
		return nil, classify(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, decodeError(res)
	}
	var aliases map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&aliases); err != nil {
		return nil, fmt.Errorf("decode alias listing: %w", err)
	}
	names = make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	return names, nil
}

func (c *Client) IndexDocument(ctx context.Context, name string, doc map[string]any) (out IndexResult, err error) {
	defer func() { observe("index_document", err) }()
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := c.es.Index(name, esutil.NewJSONReader(doc), c.es.Index.WithContext(ctx))
	if err != nil {
		return out, classify(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return out, decodeError(res)
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode index response: %w", err)
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, name, q string) (hits []map[string]any, err error) {
	defer func() { observe("search", err) }()
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(name),
		c.es.Search.WithQuery(q),
	)
	if err != nil {
		return nil, classify(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, decodeError(res)
	}
	var body struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	// Sources keep their numbers as json.Number so large integers survive.
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits = make([]map[string]any, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		hits = append(hits, h.Source)
	}
	return hits, nil
}

func (c *Client) PutSettings(ctx context.Context, name string, settings map[string]any) (err error) {
	defer func() { observe("put_settings", err) }()
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := c.es.Indices.PutSettings(
		esutil.NewJSONReader(settings),
		c.es.Indices.PutSettings.WithIndex(name),
		c.es.Indices.PutSettings.WithContext(ctx),
	)
	if err != nil {
		return classify(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError(res)
	}
	return nil
}

func (c *Client) PutMapping(ctx context.Context, name string, mapping map[string]any) (err error) {
	defer func() { observe("put_mapping", err) }()
	ctx, cancel := c.bound(ctx)
	defer cancel()

	res, err := c.es.Indices.PutMapping(
		[]string{name},
		esutil.NewJSONReader(mapping),
		c.es.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return classify(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError(res)
	}
	return nil
}

// classify turns a transport failure into ErrTimeout when the deadline hit.
func classify(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("elasticsearch request: %w", err)
}

// decodeError reads an Elasticsearch error body into a BackendError.
// The "error" field is either an object with type/reason or a bare string.
func decodeError(res *esapi.Response) error {
	be := &BackendError{Status: res.StatusCode}
	if res.Body == nil {
		return be
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil || len(raw) == 0 {
		return be
	}
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil || len(body.Error) == 0 {
		return be
	}
	var cause struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body.Error, &cause) == nil {
		be.Type, be.Reason = cause.Type, cause.Reason
		return be
	}
	var msg string
	if json.Unmarshal(body.Error, &msg) == nil {
		be.Reason = msg
	}
	return be
}

func observe(op string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, ErrTimeout):
		outcome = metrics.OutcomeTimeout
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.ObserveBackend("elasticsearch", op, outcome)
}
