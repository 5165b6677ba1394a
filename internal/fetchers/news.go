package fetchers

import (
	"context"
	"fmt"
	"net/url"

	"watchtower/internal/models"
	"watchtower/pkg/geo"
	"watchtower/pkg/logging"
)

const gdeltBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"

// gdeltQuery targets geopolitical instability coverage.
const gdeltQuery = `(conflict OR coup OR sanctions OR mobilization OR "state of emergency")`

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

type gdeltArticle struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	SourceCountry string `json:"sourcecountry"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
}

// FetchNews pulls recent articles from the GDELT doc search API and
// geocodes each to its source country centroid. Articles whose country
// cannot be resolved are dropped: the map consumer needs a position.
func (f *Fetcher) FetchNews(ctx context.Context) ([]models.NewsItem, error) {
	base := f.cfg.GDELTBaseURL
	if base == "" {
		base = gdeltBaseURL
	}

	endpoint := fmt.Sprintf("%s?query=%s&mode=artlist&maxrecords=75&timespan=24h&format=json",
		base, url.QueryEscape(gdeltQuery))

	var resp gdeltResponse
	if err := f.bulk.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		f.logger.WithError(err).WithField("source", "gdelt").Warn("News fetch degraded to empty")
		return nil, fmt.Errorf("gdelt fetch: %w", err)
	}

	items := make([]models.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}

		centroid, ok := geo.ResolveCountry(a.SourceCountry)
		if !ok {
			f.logger.WithFields(logging.Fields{
				"source":  "gdelt",
				"country": a.SourceCountry,
			}).Debug("Dropping article with unresolvable country")
			continue
		}

		lat, lon := centroid.Lat, centroid.Lon
		items = append(items, models.NewsItem{
			ExternalID:  stableID("news", a.URL),
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Domain,
			Country:     a.SourceCountry,
			Lat:         &lat,
			Lon:         &lon,
			PublishedAt: parseTime(a.SeenDate, "20060102T150405Z"),
			Data: models.JSONB{
				"language": a.Language,
			},
		})
	}

	return items, nil
}
