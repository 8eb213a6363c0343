// Package places provides a client for the Google Places API v1 text
// search endpoint, mapped onto the dashboard's Place shape.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/rueda-la-rola/leadgen/internal/model"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"

	// biasRadiusMeters is the fixed circle radius used for map-area
	// searches instead of naming a city in the query.
	biasRadiusMeters = 2000.0
)

// fieldMask lists the upstream fields needed to build a Place plus the
// continuation token for the next page.
const fieldMask = "places.id,places.displayName,places.formattedAddress," +
	"places.websiteUri,places.internationalPhoneNumber,places.location,nextPageToken"

// Client performs places directory searches.
type Client interface {
	SearchText(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest is a single text search. Query is required. When
// LocationBias is set the search is biased to a fixed-radius circle
// around that point. PageToken continues a previous search.
type SearchRequest struct {
	Query        string
	PageToken    string
	LocationBias *model.LatLng
}

// SearchResponse holds one page of mapped results and the opaque token
// for the next page (empty when the last page was returned).
type SearchResponse struct {
	Places        []model.Place
	NextPageToken string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound request rate in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a places search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchTextRequest struct {
	TextQuery    string        `json:"textQuery"`
	PageToken    string        `json:"pageToken,omitempty"`
	LocationBias *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center model.LatLng `json:"center"`
	Radius float64      `json:"radius"`
}

type searchTextResponse struct {
	Places        []upstreamPlace `json:"places"`
	NextPageToken string          `json:"nextPageToken"`
}

type upstreamPlace struct {
	ID             string       `json:"id"`
	DisplayName    displayName  `json:"displayName"`
	FormattedAddr  string       `json:"formattedAddress"`
	WebsiteURI     string       `json:"websiteUri"`
	IntlPhone      string       `json:"internationalPhoneNumber"`
	Location       model.LatLng `json:"location"`
}

type displayName struct {
	Text string `json:"text"`
}

type upstreamError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *httpClient) SearchText(ctx context.Context, sreq SearchRequest) (*SearchResponse, error) {
	if sreq.Query == "" {
		return nil, eris.New("places: empty query")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "places: rate limit wait")
		}
	}

	payload := searchTextRequest{
		TextQuery: sreq.Query,
		PageToken: sreq.PageToken,
	}
	if sreq.LocationBias != nil {
		payload.LocationBias = &locationBias{
			Circle: circle{Center: *sreq.LocationBias, Radius: biasRadiusMeters},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		// Surface the upstream message when the error body parses.
		var ue upstreamError
		if jsonErr := json.Unmarshal(respBody, &ue); jsonErr == nil && ue.Error.Message != "" {
			return nil, eris.Errorf("places: upstream status %d: %s", resp.StatusCode, ue.Error.Message)
		}
		return nil, eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchTextResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	return &SearchResponse{
		Places:        mapPlaces(result.Places),
		NextPageToken: result.NextPageToken,
	}, nil
}

// mapPlaces converts upstream records to the Place shape. Records
// without a stable id cannot be tracked and are skipped; optional
// fields null-coalesce instead of dropping the record.
func mapPlaces(in []upstreamPlace) []model.Place {
	out := make([]model.Place, 0, len(in))
	for _, up := range in {
		if up.ID == "" {
			continue
		}
		p := model.Place{
			PlaceID:  up.ID,
			Name:     up.DisplayName.Text,
			Address:  up.FormattedAddr,
			Location: up.Location,
		}
		if up.WebsiteURI != "" {
			w := up.WebsiteURI
			p.Website = &w
		}
		if up.IntlPhone != "" {
			ph := up.IntlPhone
			p.Phone = &ph
		}
		out = append(out, p)
	}
	return out
}
