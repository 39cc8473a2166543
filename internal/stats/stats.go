// Package stats computes the dashboard figures from a loaded dataset. Every
// function is pure and treats a nil or empty dataset as zero.
package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/stellarlinkco/wamonitor/internal/message"
)

const (
	DefaultTopSenders  = 10
	DefaultRecentLimit = 20
)

func TotalCount(ds *message.Dataset) int {
	return ds.Len()
}

// GroupCount counts records flagged isGroup.
func GroupCount(ds *message.Dataset) int {
	n := 0
	for _, r := range ds.All() {
		if r.Grouped() {
			n++
		}
	}
	return n
}

func DirectCount(ds *message.Dataset) int {
	return TotalCount(ds) - GroupCount(ds)
}

// UniqueSenderCount counts distinct fromName values. Records without a
// sender do not form an identity of their own.
func UniqueSenderCount(ds *message.Dataset) int {
	seen := make(map[string]struct{})
	for _, r := range ds.All() {
		if name, ok := r.FromName.Get(); ok {
			seen[name] = struct{}{}
		}
	}
	return len(seen)
}

type SenderCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SenderFrequency ranks senders by message count, highest first. Equal
// counts keep the order in which the senders first appear in the log.
func SenderFrequency(ds *message.Dataset) []SenderCount {
	index := make(map[string]int)
	var out []SenderCount
	for _, r := range ds.All() {
		name, ok := r.FromName.Get()
		if !ok {
			continue
		}
		if i, seen := index[name]; seen {
			out[i].Count++
			continue
		}
		index[name] = len(out)
		out = append(out, SenderCount{Name: name, Count: 1})
	}
	slices.SortStableFunc(out, func(a, b SenderCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}

// TopSenders returns the first n entries of SenderFrequency.
func TopSenders(ds *message.Dataset, n int) []SenderCount {
	if n <= 0 {
		n = DefaultTopSenders
	}
	freq := SenderFrequency(ds)
	if len(freq) > n {
		freq = freq[:n]
	}
	return freq
}

// Histogram holds message counts indexed by hour of day.
type Histogram [24]int

// HourlyHistogram buckets timed records by hour. ok is false when no record
// has a usable time; callers should then skip the chart.
func HourlyHistogram(ds *message.Dataset) (h Histogram, ok bool) {
	for _, r := range ds.All() {
		hour, valid := r.Hour.Get()
		if !valid {
			continue
		}
		h[hour]++
		ok = true
	}
	return h, ok
}

func (h Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Peak returns the busiest hour; ties go to the earliest hour.
func (h Histogram) Peak() (hour, count int) {
	for i, c := range h {
		if c > count {
			hour, count = i, c
		}
	}
	return hour, count
}

// FeedEntry is one line of the recent-messages feed with every default
// already resolved.
type FeedEntry struct {
	Sender    string    `json:"sender"`
	Prefix    string    `json:"prefix"`
	Time      time.Time `json:"time"`
	TimeLabel string    `json:"timeLabel"`
	Body      string    `json:"body"`
}

// RecentMessages returns up to limit timed records, newest first. Records
// without a time are left out. limit <= 0 means DefaultRecentLimit.
func RecentMessages(ds *message.Dataset, limit int) []FeedEntry {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	var timed []message.Record
	for _, r := range ds.All() {
		if r.Time.Valid {
			timed = append(timed, r)
		}
	}
	slices.SortStableFunc(timed, func(a, b message.Record) int {
		return b.Time.Value.Compare(a.Time.Value)
	})
	if len(timed) > limit {
		timed = timed[:limit]
	}

	feed := make([]FeedEntry, 0, len(timed))
	for _, r := range timed {
		feed = append(feed, FeedEntry{
			Sender:    r.Sender(),
			Prefix:    r.Prefix(),
			Time:      r.Time.Value,
			TimeLabel: r.TimeLabel(),
			Body:      r.Text(),
		})
	}
	return feed
}
