// Package news implements ports.NewsProvider against the Tavily and Brave
// search APIs, selected by configuration.
package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

const (
	defaultTavilyBase = "https://api.tavily.com"
	defaultBraveBase  = "https://api.search.brave.com/res/v1/news/search"

	requestTimeout = 10 * time.Second
	ratePerSec     = 5
)

// Provider fetches articles from whichever search API is configured.
// Search returns an empty slice, not an error, when no provider key is
// set — callers treat that as "no news available" rather than a failure.
type Provider struct {
	http    *http.Client
	limiter *rate.Limiter

	tavilyBase, braveBase string
	tavilyKey, braveKey   string
	useProvider           string // "tavily" or "brave"
}

// Config selects the active provider and its credentials.
type Config struct {
	SearchProvider string // "tavily" or "brave"
	TavilyAPIKey   string
	BraveAPIKey    string
	TavilyBaseURL  string
	BraveBaseURL   string
}

func New(cfg Config) *Provider {
	return &Provider{
		http:        &http.Client{Timeout: requestTimeout},
		limiter:     rate.NewLimiter(ratePerSec, 5),
		tavilyBase:  orDefault(cfg.TavilyBaseURL, defaultTavilyBase),
		braveBase:   orDefault(cfg.BraveBaseURL, defaultBraveBase),
		tavilyKey:   cfg.TavilyAPIKey,
		braveKey:    cfg.BraveAPIKey,
		useProvider: cfg.SearchProvider,
	}
}

func (p *Provider) Search(ctx context.Context, query string, maxArticles int) ([]ports.Article, error) {
	switch {
	case p.useProvider == "tavily" && p.tavilyKey != "":
		return p.searchTavily(ctx, query, maxArticles)
	case p.useProvider == "brave" && p.braveKey != "":
		return p.searchBrave(ctx, query, maxArticles)
	default:
		slog.Warn("news: no search API key configured, returning empty context")
		return nil, nil
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

func (p *Provider) searchTavily(ctx context.Context, query string, maxArticles int) ([]ports.Article, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("news.searchTavily: rate limiter: %w", err)
	}

	reqBody := tavilyRequest{APIKey: p.tavilyKey, Query: query, MaxResults: maxArticles, SearchDepth: "basic"}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("news.searchTavily: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tavilyBase+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("news.searchTavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		slog.Error("news: tavily search error", "err", err)
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("news: tavily search error", "status", resp.StatusCode, "body", string(body))
		return nil, nil
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("news.searchTavily: decode: %w", err)
	}

	articles := make([]ports.Article, 0, len(out.Results))
	for _, r := range out.Results {
		articles = append(articles, ports.Article{Title: r.Title, Content: r.Content})
	}
	return articles, nil
}

type braveResponse struct {
	Results []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"results"`
}

func (p *Provider) searchBrave(ctx context.Context, query string, maxArticles int) ([]ports.Article, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("news.searchBrave: rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s?q=%s&count=%d", p.braveBase, url.QueryEscape(query), maxArticles)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("news.searchBrave: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.braveKey)

	resp, err := p.http.Do(req)
	if err != nil {
		slog.Error("news: brave search error", "err", err)
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("news: brave search error", "status", resp.StatusCode, "body", string(body))
		return nil, nil
	}

	var out braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("news.searchBrave: decode: %w", err)
	}

	articles := make([]ports.Article, 0, len(out.Results))
	for _, r := range out.Results {
		articles = append(articles, ports.Article{Title: r.Title, Content: r.Description})
	}
	return articles, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
