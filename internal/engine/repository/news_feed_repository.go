package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// NewsFeedRepository reads market headlines from RSS/Atom feeds.
type NewsFeedRepository interface {
	LatestHeadlines(ctx context.Context, feeds []string, limit int) ([]dto.Headline, error)
}

type newsFeedRepository struct {
	parser  *gofeed.Parser
	log     *logger.Logger
	timeout time.Duration
}

func NewNewsFeedRepository(log *logger.Logger, timeout time.Duration) NewsFeedRepository {
	return &newsFeedRepository{
		parser:  gofeed.NewParser(),
		log:     log,
		timeout: timeout,
	}
}

// LatestHeadlines merges all feeds newest first. An unreachable feed is logged and skipped.
func (r *newsFeedRepository) LatestHeadlines(ctx context.Context, feeds []string, limit int) ([]dto.Headline, error) {
	var headlines []dto.Headline
	for _, feedURL := range feeds {
		feedCtx, cancel := context.WithTimeout(ctx, r.timeout)
		feed, err := r.parser.ParseURLWithContext(feedURL, feedCtx)
		cancel()
		if err != nil {
			r.log.WarnContext(ctx, "Failed to parse news feed", logger.StringField("url", feedURL), logger.ErrorField(err))
			continue
		}

		for _, item := range feed.Items {
			if item == nil || strings.TrimSpace(item.Title) == "" {
				continue
			}
			headlines = append(headlines, dto.Headline{
				Title:       strings.TrimSpace(item.Title),
				Summary:     truncate(stripHTML(item.Description), 280),
				Link:        item.Link,
				Source:      feed.Title,
				PublishedAt: item.PublishedParsed,
			})
		}
	}

	sort.SliceStable(headlines, func(i, j int) bool {
		a, b := headlines[i].PublishedAt, headlines[j].PublishedAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})

	if limit > 0 && len(headlines) > limit {
		headlines = headlines[:limit]
	}
	return headlines, nil
}

func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
