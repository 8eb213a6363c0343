package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rueda-la-rola/leadgen/internal/board"
	"github.com/rueda-la-rola/leadgen/internal/generator"
	"github.com/rueda-la-rola/leadgen/internal/model"
	"github.com/rueda-la-rola/leadgen/internal/store"
	"github.com/rueda-la-rola/leadgen/pkg/places"
	placemocks "github.com/rueda-la-rola/leadgen/pkg/places/mocks"
	"github.com/rueda-la-rola/leadgen/pkg/textgen"
	textmocks "github.com/rueda-la-rola/leadgen/pkg/textgen/mocks"
)

func strPtr(s string) *string { return &s }

type testEnv struct {
	server  *Server
	store   store.Store
	board   *board.Board
	places  *placemocks.MockClient
	textgen *textmocks.MockClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	b := board.New(st)
	pc := placemocks.NewMockClient(t)
	tc := textmocks.NewMockClient(t)
	gen := generator.New(tc, st, generator.Config{Model: "test-model"})

	return &testEnv{
		server:  New(b, st, pc, gen, "maps-key"),
		store:   st,
		board:   b,
		places:  pc,
		textgen: tc,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestConfig(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "maps-key", body["mapsApiKey"])
}

func TestSearch_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/search?city=Madrid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/search?category=barber", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/search?category=barber&lat=40.4", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/search?category=barber&lat=oops&lng=-3.7", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_FreshReplacesResults(t *testing.T) {
	env := newTestEnv(t)

	env.places.On("SearchText", mock.Anything, mock.MatchedBy(func(req places.SearchRequest) bool {
		return req.Query == "barber in Madrid" && req.PageToken == "" && req.LocationBias == nil
	})).Return(&places.SearchResponse{
		Places: []model.Place{
			{PlaceID: "p-1", Name: "Cortes Paco"},
			{PlaceID: "p-2", Name: "Bar Sol", Website: strPtr("https://barsol.es")},
		},
		NextPageToken: "tok-2",
	}, nil).Once()

	rec := env.do(t, http.MethodGet, "/search?category=barber&city=Madrid", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[searchResponse](t, rec)
	assert.Len(t, resp.Results, 2)
	require.NotNil(t, resp.NextPageToken)
	assert.Equal(t, "tok-2", *resp.NextPageToken)
	assert.Equal(t, 2, resp.Counts.Total)
	assert.Equal(t, 1, resp.Counts.NoWeb)
}

func TestSearch_PageTokenAppends(t *testing.T) {
	env := newTestEnv(t)
	env.board.SetPlaces([]model.Place{{PlaceID: "p-1", Name: "Cortes Paco"}})

	env.places.On("SearchText", mock.Anything, mock.MatchedBy(func(req places.SearchRequest) bool {
		return req.PageToken == "tok-2"
	})).Return(&places.SearchResponse{
		Places: []model.Place{
			{PlaceID: "p-1", Name: "Cortes Paco"},
			{PlaceID: "p-3", Name: "Taller Sur"},
		},
	}, nil).Once()

	rec := env.do(t, http.MethodGet, "/search?category=barber&city=Madrid&pageToken=tok-2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[searchResponse](t, rec)
	assert.Len(t, resp.Results, 2)
	assert.Nil(t, resp.NextPageToken)
}

func TestSearch_CoordinatesBias(t *testing.T) {
	env := newTestEnv(t)

	env.places.On("SearchText", mock.Anything, mock.MatchedBy(func(req places.SearchRequest) bool {
		return req.Query == "barber" &&
			req.LocationBias != nil &&
			req.LocationBias.Latitude == 40.4 &&
			req.LocationBias.Longitude == -3.7
	})).Return(&places.SearchResponse{}, nil).Once()

	rec := env.do(t, http.MethodGet, "/search?category=barber&lat=40.4&lng=-3.7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearch_CoordinatesOverrideCity(t *testing.T) {
	env := newTestEnv(t)

	// With a bias point the city is dropped from the query text.
	env.places.On("SearchText", mock.Anything, mock.MatchedBy(func(req places.SearchRequest) bool {
		return req.Query == "barber" &&
			req.LocationBias != nil &&
			req.LocationBias.Latitude == 40.4 &&
			req.LocationBias.Longitude == -3.7
	})).Return(&places.SearchResponse{}, nil).Once()

	rec := env.do(t, http.MethodGet, "/search?category=barber&city=Madrid&lat=40.4&lng=-3.7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearch_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)

	env.places.On("SearchText", mock.Anything, mock.Anything).
		Return(nil, assert.AnError).Once()

	rec := env.do(t, http.MethodGet, "/search?category=barber&city=Madrid", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "search failed", body["error"])
}

func TestGenerate_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/generate", `{"type":"demo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/generate", `{"placeName":"Bar Sol","type":"flyer"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/generate", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_Success(t *testing.T) {
	env := newTestEnv(t)
	env.board.SetPlaces([]model.Place{
		{PlaceID: "p-1", Name: "Cortes Paco", Address: "Calle Luna 5", Phone: strPtr("+1 555 0100")},
	})

	env.textgen.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&textgen.MessageResponse{
			Content: []textgen.ContentBlock{{Type: "text", Text: "<html>demo</html>"}},
		}, nil).Once()

	rec := env.do(t, http.MethodPost, "/generate",
		`{"placeId":"p-1","placeName":"Cortes Paco","placeAddress":"Calle Luna 5","type":"demo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "success", body["status"])
	require.NotEmpty(t, body["id"])

	// Asset persisted and retrievable.
	asset, err := env.store.GetAsset(context.Background(), body["id"])
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, "<html>demo</html>", asset.Content)

	// The place was auto-contacted with the full record from the result
	// set, including the phone the generate request never carries.
	lead, err := env.store.GetLead(context.Background(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, model.StatusContacted, lead.Status)
	require.NotNil(t, lead.Phone)
	assert.Equal(t, "+1 555 0100", *lead.Phone)

	// Contacted leads leave the results view and land on the pipeline.
	views := env.board.Visible(board.FilterAll)
	require.Len(t, views, 0)
	pipeline := env.board.Pipeline()
	assert.Len(t, pipeline[model.StatusContacted], 1)
}

func TestGenerate_InFlightConflict(t *testing.T) {
	env := newTestEnv(t)

	require.True(t, env.board.BeginGenerating("p-1"))
	defer env.board.EndGenerating("p-1")

	rec := env.do(t, http.MethodPost, "/generate",
		`{"placeId":"p-1","placeName":"Cortes Paco","type":"demo"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)

	env.textgen.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, assert.AnError).Once()

	rec := env.do(t, http.MethodPost, "/generate",
		`{"placeId":"p-1","placeName":"Cortes Paco","type":"demo"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The guard is released so a retry is possible.
	assert.True(t, env.board.BeginGenerating("p-1"))
	env.board.EndGenerating("p-1")
}

func TestAsset_Render(t *testing.T) {
	env := newTestEnv(t)

	asset, err := env.store.CreateAsset(context.Background(), model.Asset{
		PlaceID:   "p-1",
		PlaceName: "Bar Sol",
		Type:      model.AssetDemo,
		Content:   "<html><body>Bar Sol</body></html>",
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/assets/"+asset.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<html><body>Bar Sol</body></html>", rec.Body.String())
}

func TestAsset_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/assets/no-such-id", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Asset not found")
}

func TestLeadStatus_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.board.SetPlaces([]model.Place{{PlaceID: "p-1", Name: "Cortes Paco", Address: "Calle Luna 5"}})

	rec := env.do(t, http.MethodPut, "/leads/p-1/status", `{"status":"contacted"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	lead := decode[model.Lead](t, rec)
	assert.Equal(t, model.StatusContacted, lead.Status)
	assert.Equal(t, "Cortes Paco", lead.Name)

	rec = env.do(t, http.MethodPut, "/leads/p-1/status", `{"status":"sold"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Sold is terminal.
	rec = env.do(t, http.MethodPut, "/leads/p-1/status", `{"status":"contacted"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/leads/p-1/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/leads", "")
	require.Equal(t, http.StatusOK, rec.Code)
	leads := decode[[]model.Lead](t, rec)
	require.Len(t, leads, 1)
	assert.Equal(t, model.StatusSold, leads[0].Status)
}

func TestBoard_Filters(t *testing.T) {
	env := newTestEnv(t)
	env.board.SetPlaces([]model.Place{
		{PlaceID: "p-1", Name: "Cortes Paco"},
		{PlaceID: "p-2", Name: "Bar Sol", Website: strPtr("https://barsol.es")},
	})

	rec := env.do(t, http.MethodGet, "/board?filter=no-web", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[boardResponse](t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "p-1", resp.Results[0].PlaceID)
	assert.Equal(t, 2, resp.Counts.Total)

	rec = env.do(t, http.MethodGet, "/board?filter=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/board", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[boardResponse](t, rec)
	assert.Len(t, resp.Results, 2)
}
