package fetchers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"watchtower/internal/models"
)

const (
	usaSpendingURL       = "https://api.usaspending.gov/api/v2/search/spending_by_award/"
	hnSearchURL          = "https://hn.algolia.com/api/v1/search_by_date"
	leadersURL           = "https://raw.githubusercontent.com/samayo/country-json/master/src/country-by-government-type.json"
	minContractAmountUSD = 50_000_000
	layoffLookbackDays   = 30
	contractLookbackDays = 7
)

type usaSpendingRequest struct {
	Filters struct {
		TimePeriod []struct {
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		} `json:"time_period"`
		AwardTypeCodes []string `json:"award_type_codes"`
		AwardAmounts   []struct {
			LowerBound float64 `json:"lower_bound"`
		} `json:"award_amounts"`
	} `json:"filters"`
	Fields []string `json:"fields"`
	Limit  int      `json:"limit"`
	Sort   string   `json:"sort"`
	Order  string   `json:"order"`
}

type usaSpendingResponse struct {
	Results []struct {
		GeneratedInternalID string  `json:"generated_internal_id"`
		Recipient           string  `json:"Recipient Name"`
		Agency              string  `json:"Awarding Agency"`
		Amount              float64 `json:"Award Amount"`
		Description         string  `json:"Description"`
	} `json:"results"`
}

// FetchGovContracts pulls recent large federal awards from USASpending.
func (f *Fetcher) FetchGovContracts(ctx context.Context) ([]models.GovContract, error) {
	endpoint := f.cfg.USASpendingURL
	if endpoint == "" {
		endpoint = usaSpendingURL
	}

	now := f.now()
	var req usaSpendingRequest
	req.Filters.TimePeriod = []struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}{{
		StartDate: now.AddDate(0, 0, -contractLookbackDays).Format("2006-01-02"),
		EndDate:   now.Format("2006-01-02"),
	}}
	req.Filters.AwardTypeCodes = []string{"A", "B", "C", "D"}
	req.Filters.AwardAmounts = []struct {
		LowerBound float64 `json:"lower_bound"`
	}{{LowerBound: minContractAmountUSD}}
	req.Fields = []string{"Award ID", "Recipient Name", "Awarding Agency", "Award Amount", "Description"}
	req.Limit = 25
	req.Sort = "Award Amount"
	req.Order = "desc"

	var resp usaSpendingResponse
	if err := f.bulk.PostJSON(ctx, endpoint, nil, req, &resp); err != nil {
		f.logger.WithError(err).WithField("source", "usaspending").Warn("Contract fetch degraded to empty")
		return nil, fmt.Errorf("usaspending fetch: %w", err)
	}

	contracts := make([]models.GovContract, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.GeneratedInternalID == "" || r.Amount <= 0 {
			continue
		}
		contracts = append(contracts, models.GovContract{
			ExternalID: "award-" + r.GeneratedInternalID,
			Recipient:  r.Recipient,
			Agency:     r.Agency,
			AmountUSD:  r.Amount,
			Data: models.JSONB{
				"description": r.Description,
			},
		})
	}

	return contracts, nil
}

type hnSearchResponse struct {
	Hits []struct {
		ObjectID  string `json:"objectID"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		CreatedAt int64  `json:"created_at_i"`
	} `json:"hits"`
}

// FetchLayoffs searches Hacker News for recent layoff coverage. Stories
// without a title or that merely mention hiring are filtered out.
func (f *Fetcher) FetchLayoffs(ctx context.Context) ([]models.Layoff, error) {
	base := f.cfg.HNSearchURL
	if base == "" {
		base = hnSearchURL
	}

	since := f.now().AddDate(0, 0, -layoffLookbackDays).Unix()
	endpoint := fmt.Sprintf("%s?query=%s&tags=story&numericFilters=%s",
		base, url.QueryEscape("layoffs"), url.QueryEscape(fmt.Sprintf("created_at_i>%d", since)))

	var resp hnSearchResponse
	if err := f.fast.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		f.logger.WithError(err).WithField("source", "hn").Warn("Layoff fetch degraded to empty")
		return nil, fmt.Errorf("hn fetch: %w", err)
	}

	layoffs := make([]models.Layoff, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit.ObjectID == "" || hit.Title == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(hit.Title), "layoff") {
			continue
		}
		layoffs = append(layoffs, models.Layoff{
			ExternalID: "hn-" + hit.ObjectID,
			Title:      hit.Title,
			URL:        hit.URL,
			PostedAt:   time.Unix(hit.CreatedAt, 0).UTC(),
		})
	}

	return layoffs, nil
}

type leadersResponse struct {
	Data []struct {
		Country string `json:"country"`
		Name    string `json:"name"`
		Title   string `json:"title"`
	} `json:"data"`
}

// fallbackLeaders covers the permanent UN Security Council members plus
// a handful of high-salience states. The upstream dataset changes
// rarely; when it is unreachable this snapshot keeps the table
// populated.
var fallbackLeaders = []models.WorldLeader{
	{ExternalID: "leader-united-states", Country: "United States", Name: "Donald Trump", Title: "President"},
	{ExternalID: "leader-china", Country: "China", Name: "Xi Jinping", Title: "President"},
	{ExternalID: "leader-russia", Country: "Russia", Name: "Vladimir Putin", Title: "President"},
	{ExternalID: "leader-united-kingdom", Country: "United Kingdom", Name: "Keir Starmer", Title: "Prime Minister"},
	{ExternalID: "leader-france", Country: "France", Name: "Emmanuel Macron", Title: "President"},
	{ExternalID: "leader-germany", Country: "Germany", Name: "Friedrich Merz", Title: "Chancellor"},
	{ExternalID: "leader-india", Country: "India", Name: "Narendra Modi", Title: "Prime Minister"},
	{ExternalID: "leader-japan", Country: "Japan", Name: "Shigeru Ishiba", Title: "Prime Minister"},
	{ExternalID: "leader-brazil", Country: "Brazil", Name: "Luiz Inacio Lula da Silva", Title: "President"},
	{ExternalID: "leader-ukraine", Country: "Ukraine", Name: "Volodymyr Zelenskyy", Title: "President"},
	{ExternalID: "leader-israel", Country: "Israel", Name: "Benjamin Netanyahu", Title: "Prime Minister"},
	{ExternalID: "leader-iran", Country: "Iran", Name: "Masoud Pezeshkian", Title: "President"},
	{ExternalID: "leader-north-korea", Country: "North Korea", Name: "Kim Jong Un", Title: "Supreme Leader"},
	{ExternalID: "leader-turkey", Country: "Turkey", Name: "Recep Tayyip Erdogan", Title: "President"},
	{ExternalID: "leader-saudi-arabia", Country: "Saudi Arabia", Name: "Mohammed bin Salman", Title: "Crown Prince"},
}

// FetchWorldLeaders pulls the leaders dataset, falling back to the
// built-in snapshot when the upstream is unreachable. This fetcher
// never returns an error; stale leadership data beats an empty table.
func (f *Fetcher) FetchWorldLeaders(ctx context.Context) ([]models.WorldLeader, error) {
	endpoint := f.cfg.LeadersURL
	if endpoint == "" {
		endpoint = leadersURL
	}

	var resp leadersResponse
	if err := f.fast.GetJSON(ctx, endpoint, nil, &resp); err != nil || len(resp.Data) == 0 {
		f.logger.WithError(err).WithField("source", "leaders").Warn("Leaders fetch failed, using built-in snapshot")
		return fallbackLeaders, nil
	}

	leaders := make([]models.WorldLeader, 0, len(resp.Data))
	for _, l := range resp.Data {
		if l.Country == "" || l.Name == "" {
			continue
		}
		slug := strings.ToLower(strings.ReplaceAll(l.Country, " ", "-"))
		leaders = append(leaders, models.WorldLeader{
			ExternalID: "leader-" + slug,
			Country:    l.Country,
			Name:       l.Name,
			Title:      l.Title,
		})
	}
	if len(leaders) == 0 {
		return fallbackLeaders, nil
	}
	return leaders, nil
}
