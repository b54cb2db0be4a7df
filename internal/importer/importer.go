package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/user/recipe-importer/internal/domain"
)

const scrapePath = "/scrape"

// HostSource yields the scrape service base address. It is consulted on every call.
type HostSource interface {
	Get() string
}

// Importer fetches recipes through the remote scraping service.
type Importer struct {
	host   HostSource
	client *http.Client
}

// New creates an Importer. A nil client means a plain http.Client with no
// timeout; callers bound the request through the context.
func New(host HostSource, client *http.Client) *Importer {
	if client == nil {
		client = &http.Client{}
	}
	return &Importer{host: host, client: client}
}

// ImportFromURL asks the scraping service to scrape url and returns the recipe
// it reports. The url is passed through unvalidated.
func (i *Importer) ImportFromURL(ctx context.Context, url string) (*domain.Recipe, error) {
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(domain.ImportRequest{URL: url}); err != nil {
		return nil, fmt.Errorf("encode scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.host.Get()+scrapePath, &payload)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	outcome, err := decodeScrapeResponse(body)
	if err != nil {
		return nil, err
	}

	switch outcome.kind {
	case outcomeData:
		return domain.DecodeRecipe(outcome.data), nil
	case outcomeError:
		return nil, &RemoteError{Message: outcome.message}
	default:
		return nil, ErrUnknownResponse
	}
}
