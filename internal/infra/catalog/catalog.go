package infra_catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reelroom/core/internal/config"
	"github.com/reelroom/core/internal/model"
)

var (
	ErrBadStatus = errors.New("catalog returned non-200 status")
)

// PageCache is an optional read-through cache for raw catalog pages.
type PageCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   PageCache
	logger  *slog.Logger
}

type ClientOption func(*Client)

func WithCache(cache PageCache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(cfg config.Catalog, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pageDTO struct {
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Results    []itemDTO `json:"results"`
}

type itemDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Name        string  `json:"name"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date"`
	FirstAirOn  string  `json:"first_air_date"`
}

// FetchPage pulls one page of candidates in catalog order. The second
// return reports whether more pages exist under these filters.
func (c *Client) FetchPage(ctx context.Context, filters model.Filters, page, pageSize int) ([]model.CatalogItem, bool, error) {
	mediaType := filters.MediaType
	if mediaType == "" {
		mediaType = model.MediaTypeMovie
	}

	body, err := c.fetchRaw(ctx, mediaType, filters.Genres, page, pageSize)
	if err != nil {
		return nil, false, err
	}

	var dto pageDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, false, fmt.Errorf("decode catalog page: %w", err)
	}

	items := make([]model.CatalogItem, 0, len(dto.Results))
	for _, r := range dto.Results {
		items = append(items, r.toDomain(mediaType))
	}

	hasMore := dto.TotalPages == 0 || dto.Page < dto.TotalPages
	return items, hasMore, nil
}

func (c *Client) fetchRaw(ctx context.Context, mediaType model.MediaType, genres []string, page, pageSize int) ([]byte, error) {
	cacheKey := fmt.Sprintf("%s:%s:%d:%d", mediaType, strings.Join(genres, ","), page, pageSize)
	if c.cache != nil {
		if body, ok := c.cache.Get(cacheKey); ok {
			return body, nil
		}
	}

	endpoint := fmt.Sprintf("%s/discover/%s", c.baseURL, url.PathEscape(mediaType))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Set("api_key", c.apiKey)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	if len(genres) > 0 {
		q.Set("with_genres", strings.Join(genres, ","))
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, body)
	}
	return body, nil
}

func (r itemDTO) toDomain(mediaType model.MediaType) model.CatalogItem {
	title := r.Title
	if title == "" {
		title = r.Name
	}
	released := r.ReleaseDate
	if released == "" {
		released = r.FirstAirOn
	}

	return model.CatalogItem{
		ID:          strconv.FormatInt(r.ID, 10),
		Title:       title,
		PosterRef:   r.PosterPath,
		Synopsis:    r.Overview,
		Rating:      r.VoteAverage,
		ReleaseDate: released,
		MediaType:   mediaType,
	}
}
