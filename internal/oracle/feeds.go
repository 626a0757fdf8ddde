// feeds.go implements the primary and backup price-feed HTTP clients.
//
// Both are thin resty wrappers: the primary feed speaks the Pyth-shaped
// "parsed updates" response, the backup feed a simple symbol/price JSON
// payload. Neither retries on failure here — a failed fetch routes the
// commodity to the next tier of the fallback chain, it does not retry
// within a tier.
package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// PrimaryFeed fetches prices from the Pyth-shaped primary price service.
type PrimaryFeed struct {
	http    *resty.Client
	limiter *TokenBucket
}

// NewPrimaryFeed creates a primary-feed client bound to baseURL with the
// given request timeout. Requests are paced to 5 per second with a burst
// of 5, since one fetch covers every configured commodity at once.
func NewPrimaryFeed(baseURL string, timeout time.Duration) *PrimaryFeed {
	return &PrimaryFeed{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
		limiter: NewTokenBucket(5, 5),
	}
}

type primaryResponse struct {
	Parsed []primaryParsedEntry `json:"parsed"`
}

type primaryParsedEntry struct {
	ID    string `json:"id"`
	Price struct {
		Price       string `json:"price"`
		Conf        string `json:"conf"`
		Expo        int32  `json:"expo"`
		PublishTime int64  `json:"publish_time"`
	} `json:"price"`
}

// rawPoint is a price/confidence pair still in the feed's native scale,
// plus its publish timestamp.
type rawPoint struct {
	price       uint64
	confidence  uint64
	publishTime int64
}

// Fetch queries the primary feed for every commodity in ids (commodity ->
// hex feed ID) and returns whatever entries were present and parsed
// cleanly. A commodity missing from the response, or failing to parse, is
// simply absent from the result — the caller treats that as "not found",
// not an error.
func (f *PrimaryFeed) Fetch(ctx context.Context, ids map[string]string) (map[string]rawPoint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("oracle: primary fetch: %w", err)
	}

	idByHex := make(map[string]string, len(ids))
	hexList := make([]string, 0, len(ids))
	for commodity, hexID := range ids {
		idByHex[hexID] = commodity
		hexList = append(hexList, hexID)
	}

	var result primaryResponse
	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(map[string][]string{"ids[]": hexList}).
		SetResult(&result).
		Get("/v2/updates/price/latest")
	if err != nil {
		return nil, fmt.Errorf("oracle: primary fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("oracle: primary fetch: status %d", resp.StatusCode())
	}

	out := make(map[string]rawPoint, len(result.Parsed))
	for _, entry := range result.Parsed {
		commodity, ok := idByHex[entry.ID]
		if !ok {
			continue
		}
		price, err := normalizeExpo(entry.Price.Price, entry.Price.Expo)
		if err != nil {
			continue
		}
		conf, err := normalizeExpo(entry.Price.Conf, entry.Price.Expo)
		if err != nil {
			continue
		}
		out[commodity] = rawPoint{price: price, confidence: conf, publishTime: entry.Price.PublishTime}
	}
	return out, nil
}

// BackupFeed fetches a single commodity's price from a simple key/symbol
// quote API, used for any commodity the primary feed did not return.
type BackupFeed struct {
	http    *resty.Client
	apiKey  string
	limiter *TokenBucket
}

// NewBackupFeed creates a backup-feed client. apiKey may be empty, in
// which case Fetch always reports "not found" (the feed requires a key).
// Requests are paced to 10 per second with a burst of 10, since Fetch is
// called once per commodity per tick rather than once for the whole set.
func NewBackupFeed(baseURL, apiKey string, timeout time.Duration) *BackupFeed {
	return &BackupFeed{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
		apiKey:  apiKey,
		limiter: NewTokenBucket(10, 10),
	}
}

type backupResponse struct {
	Price     *string `json:"price"`
	Timestamp *int64  `json:"timestamp"`
}

// Fetch queries the backup feed for symbol. Returns ok=false (no error)
// if the feed is unconfigured, the symbol is missing, or the response
// omits price/timestamp.
func (f *BackupFeed) Fetch(ctx context.Context, symbol string) (point rawPoint, ok bool, err error) {
	if f.apiKey == "" {
		return rawPoint{}, false, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return rawPoint{}, false, fmt.Errorf("oracle: backup fetch %s: %w", symbol, err)
	}

	var result backupResponse
	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetQueryParam("apikey", f.apiKey).
		SetResult(&result).
		Get("/price")
	if err != nil {
		return rawPoint{}, false, fmt.Errorf("oracle: backup fetch %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return rawPoint{}, false, nil
	}
	if result.Price == nil || result.Timestamp == nil {
		return rawPoint{}, false, nil
	}

	price, err := normalizeExpo(*result.Price, -6)
	if err != nil {
		return rawPoint{}, false, nil
	}
	return rawPoint{price: price, publishTime: *result.Timestamp}, true, nil
}
