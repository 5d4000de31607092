// Package offchain fetches the JSON document a metadata account points at and
// maps its well-known keys onto a token record.
package offchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hunterwarburton/tokenscope/internal/core"
	"github.com/hunterwarburton/tokenscope/internal/logger"
)

// DefaultTimeout bounds a single document request when no client is supplied.
const DefaultTimeout = 30 * time.Second

// DefaultMaxDocumentSize caps how much of a response body is read.
const DefaultMaxDocumentSize = 4 << 20

// Fetcher retrieves off-chain metadata documents over HTTP. One request per
// call, no retries.
type Fetcher struct {
	httpClient      *http.Client
	maxDocumentSize int64
}

// NewFetcher creates a Fetcher. A nil client gets a default one with DefaultTimeout.
func NewFetcher(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{httpClient: httpClient, maxDocumentSize: DefaultMaxDocumentSize}
}

// Fetch GETs uri and decodes the body with Decode. Transport problems and
// non-2xx responses are core.ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*core.TokenRecord, error) {
	cleanedURI := strings.TrimSpace(uri)
	if cleanedURI == "" {
		return nil, fmt.Errorf("%w - metadata URI is empty", core.ErrFetch)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, cleanedURI, nil)
	if err != nil {
		return nil, fmt.Errorf("%w - invalid metadata URI %q: %w", core.ErrFetch, cleanedURI, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w - failed to fetch %s: %w", core.ErrFetch, cleanedURI, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w - HTTP %d response from %s", core.ErrFetch, httpResp.StatusCode, cleanedURI)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w - failed to read body from %s: %w", core.ErrFetch, cleanedURI, err)
	}
	if int64(len(body)) > f.maxDocumentSize {
		return nil, fmt.Errorf("%w - metadata document from %s is larger than %d bytes", core.ErrFetch, cleanedURI, f.maxDocumentSize)
	}

	logger.ResolverDebug("Fetched %d byte metadata document from %s", len(body), cleanedURI)
	return Decode(body)
}

// documentFields maps recognized top-level keys onto record fields.
var documentFields = []struct {
	key      string
	social   bool
	recordOf func(*core.TokenRecord) **string
}{
	{"name", false, func(r *core.TokenRecord) **string { return &r.Name }},
	{"symbol", false, func(r *core.TokenRecord) **string { return &r.Symbol }},
	{"description", false, func(r *core.TokenRecord) **string { return &r.Description }},
	{"website", true, func(r *core.TokenRecord) **string { return &r.Website }},
	{"telegram", true, func(r *core.TokenRecord) **string { return &r.Telegram }},
	{"twitter", true, func(r *core.TokenRecord) **string { return &r.Twitter }},
	{"facebook", true, func(r *core.TokenRecord) **string { return &r.Facebook }},
	{"instagram", true, func(r *core.TokenRecord) **string { return &r.Instagram }},
}

// Decode maps a metadata document onto the off-chain fields of a record.
// The body must be a JSON object, otherwise core.ErrDeserialization. Unknown
// keys are ignored. Missing keys and non-string values leave the field absent.
// Social links missing at the top level are taken from the "extensions"
// object when it carries them.
func Decode(body []byte) (*core.TokenRecord, error) {
	if looksLikeHTML(body) {
		return nil, fmt.Errorf("%w - URI returns HTML instead of JSON", core.ErrDeserialization)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w - failed to parse JSON from URI: %w", core.ErrDeserialization, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w - metadata document is not a JSON object", core.ErrDeserialization)
	}

	var extensions map[string]json.RawMessage
	if raw, ok := doc["extensions"]; ok {
		if err := json.Unmarshal(raw, &extensions); err != nil {
			logger.ResolverDebug("Ignoring non-object extensions in metadata document: %v", err)
		}
	}

	record := &core.TokenRecord{}
	for _, f := range documentFields {
		value, ok := stringField(doc, f.key)
		if !ok && f.social {
			value, ok = stringField(extensions, f.key)
		}
		if ok {
			*f.recordOf(record) = core.StringPtr(value)
		}
	}
	return record, nil
}

// stringField returns fields[key] when it is a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		logger.ResolverDebug("Ignoring non-string %q in metadata document", key)
		return "", false
	}
	return value, true
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

var _ core.DocumentFetcher = (*Fetcher)(nil)
