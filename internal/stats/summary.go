package stats

import "github.com/stellarlinkco/wamonitor/internal/message"

// Options sizes the ranked views of a Summary. Zero values use the defaults.
type Options struct {
	TopSenders  int
	RecentLimit int
}

// Summary bundles every figure the dashboard shows.
type Summary struct {
	Total         int           `json:"total"`
	Group         int           `json:"group"`
	Direct        int           `json:"direct"`
	UniqueSenders int           `json:"uniqueSenders"`
	TopSenders    []SenderCount `json:"topSenders"`
	Hourly        Histogram     `json:"hourly"`
	HasHourly     bool          `json:"hasHourly"`
	Recent        []FeedEntry   `json:"recent"`
}

func Summarize(ds *message.Dataset, opts Options) Summary {
	hourly, ok := HourlyHistogram(ds)
	group := GroupCount(ds)
	return Summary{
		Total:         TotalCount(ds),
		Group:         group,
		Direct:        TotalCount(ds) - group,
		UniqueSenders: UniqueSenderCount(ds),
		TopSenders:    TopSenders(ds, opts.TopSenders),
		Hourly:        hourly,
		HasHourly:     ok,
		Recent:        RecentMessages(ds, opts.RecentLimit),
	}
}
