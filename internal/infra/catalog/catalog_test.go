package infra_catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/reelroom/core/internal/config"
	"github.com/reelroom/core/internal/model"
	"github.com/stretchr/testify/assert"
)

type CatalogClientUnitSuite struct {
	suite.Suite
}

type memoryCache struct {
	store map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: make(map[string][]byte)}
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	body, ok := c.store[key]
	return body, ok
}

func (c *memoryCache) Set(key string, value []byte) {
	c.store[key] = value
}

func (suite *CatalogClientUnitSuite) TestFetchPage(t provider.T) {
	t.Parallel()

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"path":        r.URL.Path,
			"page":        r.URL.Query().Get("page"),
			"with_genres": r.URL.Query().Get("with_genres"),
			"api_key":     r.URL.Query().Get("api_key"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"page": 1,
			"total_pages": 3,
			"results": [
				{"id": 603, "title": "The Matrix", "poster_path": "/m.jpg", "overview": "plug in", "vote_average": 8.7, "release_date": "1999-03-31"},
				{"id": 550, "name": "Fight Club", "vote_average": 8.4, "first_air_date": "1999-10-15"}
			]
		}`))
	}))
	defer server.Close()

	client := New(config.Catalog{BaseURL: server.URL, APIKey: "test-key"})

	items, hasMore, err := client.FetchPage(context.Background(),
		model.Filters{MediaType: model.MediaTypeMovie, Genres: []string{"28", "12"}}, 1, 20)

	assert.NoError(t, err)
	assert.True(t, hasMore)
	assert.Len(t, items, 2)

	assert.Equal(t, "/discover/movie", gotQuery["path"])
	assert.Equal(t, "1", gotQuery["page"])
	assert.Equal(t, "28,12", gotQuery["with_genres"])
	assert.Equal(t, "test-key", gotQuery["api_key"])

	assert.Equal(t, model.CatalogItem{
		ID:          "603",
		Title:       "The Matrix",
		PosterRef:   "/m.jpg",
		Synopsis:    "plug in",
		Rating:      8.7,
		ReleaseDate: "1999-03-31",
		MediaType:   model.MediaTypeMovie,
	}, items[0])

	// tv-style payloads fall back to name / first_air_date
	assert.Equal(t, "Fight Club", items[1].Title)
	assert.Equal(t, "1999-10-15", items[1].ReleaseDate)
}

func (suite *CatalogClientUnitSuite) TestFetchPageReportsLastPage(t provider.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"page": 3, "total_pages": 3, "results": []}`))
	}))
	defer server.Close()

	client := New(config.Catalog{BaseURL: server.URL})

	items, hasMore, err := client.FetchPage(context.Background(), model.Filters{}, 3, 20)

	assert.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, items)
}

func (suite *CatalogClientUnitSuite) TestFetchPageBadStatus(t provider.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(config.Catalog{BaseURL: server.URL})

	_, _, err := client.FetchPage(context.Background(), model.Filters{}, 1, 20)

	assert.ErrorIs(t, err, ErrBadStatus)
}

func (suite *CatalogClientUnitSuite) TestFetchPageServesRepeatsFromCache(t provider.T) {
	t.Parallel()

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"page": 1, "total_pages": 1, "results": [{"id": 603, "title": "The Matrix"}]}`))
	}))
	defer server.Close()

	client := New(config.Catalog{BaseURL: server.URL}, WithCache(newMemoryCache()))

	for i := 0; i < 3; i++ {
		items, _, err := client.FetchPage(context.Background(), model.Filters{}, 1, 20)
		assert.NoError(t, err)
		assert.Len(t, items, 1)
	}

	assert.Equal(t, 1, hits)
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(CatalogClientUnitSuite))
}
