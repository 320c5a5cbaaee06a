package news

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"llm-scanner-bot/internal/api"
	"llm-scanner-bot/internal/logger"
)

// Headline is one scraped news item.
type Headline struct {
	Title  string
	Source string
	URL    string
}

// Scraper collects headlines from multiple sources
type Scraper struct {
	sources []NewsSource
	client  *api.Client
	timeout time.Duration
}

// NewsSource defines a news source configuration
type NewsSource struct {
	Name       string
	BaseURL    string
	SearchPath string // e.g., "/search?q={symbol}"
	Selectors  ArticleSelectors
	RateLimit  time.Duration
}

// ArticleSelectors defines CSS selectors for extracting headline data
type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	URL              string
}

// NewScraper creates a new headline scraper with default sources
func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		sources: getDefaultSources(),
		client:  api.NewClient(api.WithTimeout(timeout)),
		timeout: timeout,
	}
}

// getDefaultSources returns a list of financial news sources to scrape
func getDefaultSources() []NewsSource {
	return []NewsSource{
		{
			Name:       "MoneyControl",
			BaseURL:    "https://www.moneycontrol.com",
			SearchPath: "/news/tags/{symbol}.html",
			Selectors: ArticleSelectors{
				ArticleContainer: "li.clearfix",
				Title:            "h2 a, h3 a",
				URL:              "h2 a, h3 a",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:       "EconomicTimes",
			BaseURL:    "https://economictimes.indiatimes.com",
			SearchPath: "/topic/{symbol}",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.story-box",
				Title:            "a",
				URL:              "a",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:       "BusinessStandard",
			BaseURL:    "https://www.business-standard.com",
			SearchPath: "/search?q={symbol}",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.listing-txt",
				Title:            "a.Hdng",
				URL:              "a.Hdng",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// Scrape fetches headlines for a given symbol from all sources
func (s *Scraper) Scrape(ctx context.Context, symbol string, maxHeadlines int) ([]Headline, error) {
	logger.Debug(ctx, "Starting headline scraping", "symbol", symbol, "sources", len(s.sources))

	perSource := maxHeadlines / len(s.sources)
	if perSource < 1 {
		perSource = 1
	}

	all := []Headline{}
	for _, source := range s.sources {
		headlines, err := s.scrapeSource(ctx, source, symbol, perSource)
		if err != nil {
			logger.Warn(ctx, "Failed to scrape source", "source", source.Name, "symbol", symbol, "error", err)
			continue
		}
		// Structured selectors go stale when a site redesigns; retry with a
		// loose whole-page parse before giving up on the source.
		if len(headlines) == 0 {
			headlines, err = s.scrapeLoose(ctx, source, symbol, perSource)
			if err != nil {
				logger.Warn(ctx, "Loose scrape failed", "source", source.Name, "symbol", symbol, "error", err)
			}
		}
		all = append(all, headlines...)

		// Rate limiting between sources
		time.Sleep(source.RateLimit)
	}

	all = relevanceFilter(dedupe(all), symbol)
	if len(all) > maxHeadlines {
		all = all[:maxHeadlines]
	}

	logger.Debug(ctx, "Headline scraping completed", "symbol", symbol, "headlines", len(all))
	return all, nil
}

// scrapeSource scrapes headlines from a single news source
func (s *Scraper) scrapeSource(ctx context.Context, source NewsSource, symbol string, maxHeadlines int) ([]Headline, error) {
	headlines := []Headline{}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(source.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)

	c.SetRequestTimeout(s.timeout)

	// Set user agent to avoid being blocked
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(source.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(headlines) >= maxHeadlines {
			return
		}

		title := strings.TrimSpace(e.ChildText(source.Selectors.Title))
		if title == "" {
			return
		}

		headlineURL := e.ChildAttr(source.Selectors.URL, "href")
		if headlineURL == "" {
			return
		}
		if !strings.HasPrefix(headlineURL, "http") {
			headlineURL = source.BaseURL + headlineURL
		}

		headlines = append(headlines, Headline{
			Title:  title,
			Source: source.Name,
			URL:    headlineURL,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Warn(ctx, "Scraping error", "source", source.Name, "url", r.Request.URL.String(), "error", err)
	})

	searchURL := source.BaseURL + strings.ReplaceAll(source.SearchPath, "{symbol}", strings.ToLower(symbol))
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", searchURL, err)
	}
	c.Wait()

	return headlines, nil
}

// scrapeLoose fetches the search page directly and pulls anything that looks
// like a headline link, ignoring the per-source container selectors.
func (s *Scraper) scrapeLoose(ctx context.Context, source NewsSource, symbol string, maxHeadlines int) ([]Headline, error) {
	searchURL := source.BaseURL + strings.ReplaceAll(source.SearchPath, "{symbol}", strings.ToLower(symbol))

	resp, err := s.client.GET(ctx, searchURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", searchURL, err)
	}

	headlines := []Headline{}
	doc.Find("h1 a, h2 a, h3 a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Text())
		href, ok := sel.Attr("href")
		// Short anchor text is navigation, not a headline.
		if !ok || len(title) < 20 {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			href = source.BaseURL + href
		}
		headlines = append(headlines, Headline{
			Title:  title,
			Source: source.Name,
			URL:    href,
		})
		return len(headlines) < maxHeadlines
	})

	return headlines, nil
}

// relevanceFilter keeps headlines mentioning the symbol. Source pages are
// already symbol-targeted, so when nothing matches the full set is kept
// rather than discarded.
func relevanceFilter(headlines []Headline, symbol string) []Headline {
	needle := strings.ToLower(symbol)
	matched := make([]Headline, 0, len(headlines))
	for _, h := range headlines {
		if strings.Contains(strings.ToLower(h.Title), needle) {
			matched = append(matched, h)
		}
	}
	if len(matched) == 0 {
		return headlines
	}
	return matched
}

// dedupe drops repeated titles, keeping first occurrence order
func dedupe(headlines []Headline) []Headline {
	seen := make(map[string]struct{}, len(headlines))
	out := make([]Headline, 0, len(headlines))
	for _, h := range headlines {
		key := strings.ToLower(h.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
