package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sells-group/autolink/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// graphQLServer decodes each request and answers with handler's data.
func graphQLServer(t *testing.T, handler func(req gqlRequest) (status int, body any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req gqlRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchTheTVDB_Success(t *testing.T) {
	t.Parallel()

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		var req gqlRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "searchTheTVDB(input: $input)")
		assert.Equal(t, map[string]any{"query": "Attack on Titan"}, req.Variables["input"])

		_, _ = w.Write([]byte(`{"data":{"searchTheTVDB":[
			{"id":"267440","title":"Shingeki no Kyojin","year":"2013","image":"https://img/aot.jpg",
			 "translations":[{"key":"jpn","value":"進撃の巨人"},null,{"key":"eng","value":"Attack on Titan"}]},
			{"id":"","title":"broken"}
		]}}`))
	}))
	defer srv.Close()

	client := NewClient("tok", WithBaseURL(srv.URL))
	got, err := client.SearchTheTVDB(context.Background(), "Attack on Titan")

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
	require.Len(t, got, 2)
	assert.Equal(t, "267440", got[0].ID)
	assert.Equal(t, "2013", *got[0].Year)
	require.Len(t, got[0].Translations, 3)
	assert.Nil(t, got[0].Translations[1])
	assert.Equal(t, "Attack on Titan", *got[0].Translations[2].Value)
	assert.Empty(t, got[1].ID)
}

func TestEpisodesFromTheTVDB(t *testing.T) {
	t.Parallel()

	srv := graphQLServer(t, func(req gqlRequest) (int, any) {
		assert.Equal(t, "267440", req.Variables["thetvdbID"])
		return http.StatusOK, map[string]any{"data": map[string]any{
			"getEpisodesFromTheTVDB": []map[string]any{
				{"title": "To You, in 2000 Years", "seasonNumber": 1, "episodeNumber": 1, "airDate": "2013-04-07"},
				{"title": "Special", "seasonNumber": 0, "episodeNumber": 1, "airDate": nil},
			},
		}}
	})

	got, err := NewClient("", WithBaseURL(srv.URL)).EpisodesFromTheTVDB(context.Background(), "267440")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].SeasonNumber)
	assert.Equal(t, "2013-04-07", *got[0].AirDate)
	assert.Nil(t, got[1].AirDate)
}

func TestAnime(t *testing.T) {
	t.Parallel()

	srv := graphQLServer(t, func(req gqlRequest) (int, any) {
		if req.Variables["animeId"] == "missing" {
			return http.StatusOK, map[string]any{"data": map[string]any{"anime": nil}}
		}
		return http.StatusOK, map[string]any{"data": map[string]any{"anime": map[string]any{
			"id": "a1", "titleEn": "Frieren", "titleJp": "葬送のフリーレン", "startDate": "2023-09-29T00:00:00Z",
		}}}
	})
	client := NewClient("", WithBaseURL(srv.URL))

	got, err := client.Anime(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Frieren", *got.TitleEn)
	assert.Nil(t, got.TitleRomaji)

	_, err = client.Anime(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, resilience.KindNotFound, resilience.Classify(err))
}

func TestAnimeBySeason(t *testing.T) {
	t.Parallel()

	srv := graphQLServer(t, func(req gqlRequest) (int, any) {
		assert.Equal(t, "SPRING_2024", req.Variables["season"])
		return http.StatusOK, map[string]any{"data": map[string]any{"animeBySeasons": []map[string]any{
			{"id": "1"}, {"id": "2"},
		}}}
	})

	got, err := NewClient("", WithBaseURL(srv.URL)).AnimeBySeason(context.Background(), "SPRING_2024")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSaveLinkAndSavedLinks(t *testing.T) {
	t.Parallel()

	srv := graphQLServer(t, func(req gqlRequest) (int, any) {
		if input, ok := req.Variables["input"].(map[string]any); ok {
			assert.Equal(t, "a1", input["animeID"])
			assert.Equal(t, "267440", input["thetvdbID"])
			assert.EqualValues(t, 2, input["season"])
			assert.Equal(t, "Attack on Titan Season 2", input["name"])
			return http.StatusOK, map[string]any{"data": map[string]any{"saveLink": map[string]any{
				"id": "l1", "animeID": "a1", "thetvdbID": "267440", "season": 2,
			}}}
		}
		return http.StatusOK, map[string]any{"data": map[string]any{"getSavedLinks": []map[string]any{
			{"id": "l1", "animeID": "a1", "thetvdbID": "267440", "season": 2, "name": "AoT"},
		}}}
	})
	client := NewClient("", WithBaseURL(srv.URL))

	saved, err := client.SaveLink(context.Background(), SaveLinkInput{
		AnimeID: "a1", TheTVDBID: "267440", Season: 2, Name: "Attack on Titan Season 2",
	})
	require.NoError(t, err)
	assert.Equal(t, "l1", saved.ID)

	links, err := client.SavedLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "AoT", *links[0].Name)
}

func TestSyncLink(t *testing.T) {
	t.Parallel()

	srv := graphQLServer(t, func(req gqlRequest) (int, any) {
		assert.Equal(t, "l1", req.Variables["linkId"])
		return http.StatusOK, map[string]any{"data": map[string]any{"syncLink": true}}
	})

	ok, err := NewClient("", WithBaseURL(srv.URL)).SyncLink(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		want      resilience.Kind
		transient bool
	}{
		{http.StatusUnauthorized, resilience.KindAuth, false},
		{http.StatusForbidden, resilience.KindAuth, false},
		{http.StatusNotFound, resilience.KindNotFound, false},
		{http.StatusGatewayTimeout, resilience.KindTimeout, true},
		{http.StatusServiceUnavailable, resilience.KindNetwork, true},
		{http.StatusTooManyRequests, resilience.KindNetwork, true},
		{http.StatusBadRequest, resilience.KindOther, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			srv := graphQLServer(t, func(gqlRequest) (int, any) {
				return tt.status, map[string]string{"error": "nope"}
			})
			_, err := NewClient("", WithBaseURL(srv.URL)).SearchTheTVDB(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.want, resilience.Classify(err))
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
			assert.Contains(t, err.Error(), "searchTheTVDB")
		})
	}
}

func TestGraphQLErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want resilience.Kind
	}{
		{"UNAUTHENTICATED", resilience.KindAuth},
		{"NOT_FOUND", resilience.KindNotFound},
		{"INTERNAL_SERVER_ERROR", resilience.KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			srv := graphQLServer(t, func(gqlRequest) (int, any) {
				return http.StatusOK, map[string]any{
					"data":   nil,
					"errors": []map[string]any{{"message": "boom", "extensions": map[string]string{"code": tt.code}}},
				}
			})
			_, err := NewClient("", WithBaseURL(srv.URL)).EpisodesFromTheTVDB(context.Background(), "1")
			require.Error(t, err)
			assert.Equal(t, tt.want, resilience.Classify(err))
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestTimeoutIsClassified(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := client.SearchTheTVDB(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, resilience.KindTimeout, resilience.Classify(err))
	assert.True(t, resilience.IsTransient(err))
}

func TestConnectionRefusedIsNetwork(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient("", WithBaseURL(url)).SearchTheTVDB(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, resilience.KindNetwork, resilience.Classify(err))
}

func TestRateLimitBacksOff(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRateLimit(100, 1)).(*httpClient)
	_, err := c.SearchTheTVDB(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.InDelta(t, 50, float64(c.limiter.limit()), 0.001)
}

func TestAdaptiveLimiterBounds(t *testing.T) {
	t.Parallel()

	l := newAdaptiveLimiter(10, 1)
	for range 20 {
		l.onSuccess()
	}
	assert.InDelta(t, 20, float64(l.limit()), 0.001)
	for range 20 {
		l.onRateLimit()
	}
	assert.InDelta(t, 2.5, float64(l.limit()), 0.001)
}
