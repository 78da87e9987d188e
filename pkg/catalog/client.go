// Package catalog provides a client for the anime catalog GraphQL API, which
// serves both internal anime records and proxied TheTVDB lookups.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sells-group/autolink/internal/resilience"
	"golang.org/x/time/rate"
)

// Client defines the catalog API operations.
type Client interface {
	// Anime fetches one internal record. Returns a not_found transport error
	// when the id is unknown.
	Anime(ctx context.Context, id string) (*Anime, error)
	// AnimeBySeason lists internal records airing in a season such as "SPRING_2024".
	AnimeBySeason(ctx context.Context, season string) ([]Anime, error)
	// SearchTheTVDB runs a free-text TheTVDB search. Result order is significant.
	SearchTheTVDB(ctx context.Context, query string) ([]TheTVDBAnime, error)
	// EpisodesFromTheTVDB lists every episode of a TheTVDB series.
	EpisodesFromTheTVDB(ctx context.Context, thetvdbID string) ([]TheTVDBEpisode, error)
	// SaveLink persists an anime → TheTVDB link.
	SaveLink(ctx context.Context, in SaveLinkInput) (*SavedLink, error)
	// SavedLinks lists every persisted link.
	SavedLinks(ctx context.Context) ([]SavedLink, error)
	// SyncLink pushes a saved link downstream.
	SyncLink(ctx context.Context, linkID string) (bool, error)
}

// Option configures the catalog client.
type Option func(*httpClient)

// WithBaseURL sets the GraphQL endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit paces requests to ratePerSec with the given burst. A
// non-positive rate disables pacing.
func WithRateLimit(ratePerSec float64, burst int) Option {
	return func(c *httpClient) {
		limit := rate.Inf
		if ratePerSec > 0 {
			limit = rate.Limit(ratePerSec)
		}
		c.limiter = newAdaptiveLimiter(limit, burst)
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *adaptiveLimiter
}

// NewClient creates a catalog client authenticating with a bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: "http://localhost:8080/query",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: newAdaptiveLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do posts one GraphQL operation and decodes its data into out. Every
// failure is returned as a *resilience.TransportError.
func (c *httpClient) do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transportErr(err, "catalog: %s: rate limit wait", op)
	}

	payload, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return eris.Wrapf(err, "catalog: %s: marshal request", op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrapf(err, "catalog: %s: create request", op)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportErr(err, "catalog: %s: request failed", op)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return transportErr(err, "catalog: %s: read response body", op)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.onRateLimit()
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.FromHTTPStatus(resp.StatusCode,
			eris.Errorf("catalog: %s: unexpected status %d: %s", op, resp.StatusCode, truncate(body, 200)))
	}
	c.limiter.onSuccess()

	var gr gqlResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return resilience.NewTransportError(resilience.KindOther, 0,
			eris.Wrapf(err, "catalog: %s: unmarshal response", op))
	}
	if len(gr.Errors) > 0 {
		return graphQLErr(op, gr.Errors)
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return resilience.NewTransportError(resilience.KindOther, 0,
			eris.Wrapf(err, "catalog: %s: unmarshal data", op))
	}
	return nil
}

// transportErr classifies a failure that happened before a full response
// arrived. Anything other than a timeout or cancellation is a network error.
func transportErr(err error, format string, args ...any) error {
	kind := resilience.KindNetwork
	switch {
	case errors.Is(err, context.Canceled):
		kind = resilience.KindOther
	case resilience.Classify(err) == resilience.KindTimeout:
		kind = resilience.KindTimeout
	}
	return resilience.NewTransportError(kind, 0, eris.Wrapf(err, format, args...))
}

func graphQLErr(op string, errs []gqlError) error {
	msgs := make([]string, 0, len(errs))
	kind := resilience.KindOther
	for _, e := range errs {
		msgs = append(msgs, e.Message)
		switch strings.ToUpper(e.Extensions.Code) {
		case "UNAUTHENTICATED", "FORBIDDEN":
			kind = resilience.KindAuth
		case "NOT_FOUND":
			if kind == resilience.KindOther {
				kind = resilience.KindNotFound
			}
		}
	}
	return resilience.NewTransportError(kind, 0,
		eris.Errorf("catalog: %s: graphql: %s", op, strings.Join(msgs, "; ")))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func (c *httpClient) Anime(ctx context.Context, id string) (*Anime, error) {
	var data struct {
		Anime *Anime `json:"anime"`
	}
	if err := c.do(ctx, "anime", animeQuery, map[string]any{"animeId": id}, &data); err != nil {
		return nil, err
	}
	if data.Anime == nil {
		return nil, resilience.NewTransportError(resilience.KindNotFound, 0,
			eris.Errorf("catalog: anime %s not found", id))
	}
	return data.Anime, nil
}

func (c *httpClient) AnimeBySeason(ctx context.Context, season string) ([]Anime, error) {
	var data struct {
		AnimeBySeasons []Anime `json:"animeBySeasons"`
	}
	if err := c.do(ctx, "animeBySeasons", animeBySeasonsQuery, map[string]any{"season": season}, &data); err != nil {
		return nil, err
	}
	return data.AnimeBySeasons, nil
}

func (c *httpClient) SearchTheTVDB(ctx context.Context, query string) ([]TheTVDBAnime, error) {
	var data struct {
		SearchTheTVDB []TheTVDBAnime `json:"searchTheTVDB"`
	}
	vars := map[string]any{"input": map[string]string{"query": query}}
	if err := c.do(ctx, "searchTheTVDB", searchTheTVDBQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.SearchTheTVDB, nil
}

func (c *httpClient) EpisodesFromTheTVDB(ctx context.Context, thetvdbID string) ([]TheTVDBEpisode, error) {
	var data struct {
		Episodes []TheTVDBEpisode `json:"getEpisodesFromTheTVDB"`
	}
	if err := c.do(ctx, "getEpisodesFromTheTVDB", episodesQuery, map[string]any{"thetvdbID": thetvdbID}, &data); err != nil {
		return nil, err
	}
	return data.Episodes, nil
}

func (c *httpClient) SaveLink(ctx context.Context, in SaveLinkInput) (*SavedLink, error) {
	var data struct {
		SaveLink *SavedLink `json:"saveLink"`
	}
	if err := c.do(ctx, "saveLink", saveLinkMutation, map[string]any{"input": in}, &data); err != nil {
		return nil, err
	}
	if data.SaveLink == nil {
		return nil, eris.New("catalog: saveLink returned no link")
	}
	return data.SaveLink, nil
}

func (c *httpClient) SavedLinks(ctx context.Context) ([]SavedLink, error) {
	var data struct {
		Links []SavedLink `json:"getSavedLinks"`
	}
	if err := c.do(ctx, "getSavedLinks", savedLinksQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Links, nil
}

func (c *httpClient) SyncLink(ctx context.Context, linkID string) (bool, error) {
	var data struct {
		SyncLink bool `json:"syncLink"`
	}
	if err := c.do(ctx, "syncLink", syncLinkQuery, map[string]any{"linkId": linkID}, &data); err != nil {
		return false, err
	}
	return data.SyncLink, nil
}
