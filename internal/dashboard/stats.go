// Package dashboard builds the dashboard document, reconstructing it from raw
// article and subscription listings when the stats endpoint is unavailable.
package dashboard

import (
	"cmp"
	"math"
	"slices"
	"time"

	"werss_bot/internal/filter"
	"werss_bot/internal/model"
)

// Limits of the reconstructed document.
const (
	FetchLimit    = 100
	TrendDays     = 30
	TopSources    = 10
	TopKeywords   = 20
	TrendKeywords = 10
)

const dateLayout = "2006-01-02"

// Input is the raw material for Compute.
type Input struct {
	Articles      []model.Article
	Subscriptions []model.Subscription

	// Reported totals from the list endpoints; zero means unknown.
	ArticleTotal      int
	SubscriptionTotal int
}

// Compute reconstructs the dashboard document at instant now.
func Compute(in Input, now time.Time) *model.DashboardData {
	data := &model.DashboardData{
		Stats:       totals(in, now),
		SourceStats: sourceStats(in.Articles),
	}

	dates := dateBuckets(now)
	windowStart := now.AddDate(0, 0, -TrendDays)

	window := keywordCounts(in.Articles, func(a model.Article) bool {
		d := a.Date()
		return !d.IsZero() && !d.Before(windowStart) && !d.After(now)
	})
	ranked := rank(window)
	if len(ranked) == 0 {
		ranked = rank(keywordCounts(in.Articles, func(model.Article) bool { return true }))
		data.KeywordFallback = len(ranked) > 0
	}

	data.KeywordStats = topKeywords(ranked, TopKeywords)
	trendKeys := make([]string, 0, TrendKeywords)
	for _, kc := range topKeywords(ranked, TrendKeywords) {
		trendKeys = append(trendKeys, kc.Keyword)
	}
	data.KeywordTrendData = keywordTrend(in.Articles, dates, trendKeys, now.Location())
	data.TrendData = sourceTrend(in.Articles, dates, now.Location())
	return data
}

func totals(in Input, now time.Time) model.DashboardStats {
	st := model.DashboardStats{
		TotalArticles: in.ArticleTotal,
		TotalSources:  in.SubscriptionTotal,
	}
	if st.TotalArticles <= 0 {
		st.TotalArticles = len(in.Articles)
	}
	if st.TotalSources <= 0 {
		st.TotalSources = len(in.Subscriptions)
	}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)
	for _, a := range in.Articles {
		created := a.CreatedAt.Time
		if created.IsZero() {
			continue
		}
		if !created.Before(todayStart) {
			st.TodayArticles++
		}
		if !created.Before(weekStart) {
			st.WeekArticles++
		}
	}
	return st
}

func sourceStats(articles []model.Article) []model.SourceStat {
	if len(articles) == 0 {
		return []model.SourceStat{}
	}
	byName := map[string]*model.SourceStat{}
	for _, a := range articles {
		name := a.SourceName()
		s, ok := byName[name]
		if !ok {
			s = &model.SourceStat{MpID: a.MpID, MpName: name}
			byName[name] = s
		}
		s.ArticleCount++
	}

	stats := make([]model.SourceStat, 0, len(byName))
	for _, s := range byName {
		s.Percentage = round1(float64(s.ArticleCount) * 100 / float64(len(articles)))
		stats = append(stats, *s)
	}
	slices.SortFunc(stats, func(a, b model.SourceStat) int {
		if c := cmp.Compare(b.ArticleCount, a.ArticleCount); c != 0 {
			return c
		}
		return cmp.Compare(a.MpName, b.MpName)
	})
	if len(stats) > TopSources {
		stats = stats[:TopSources]
	}
	return stats
}

func keywordCounts(articles []model.Article, keep func(model.Article) bool) map[string]int {
	counts := map[string]int{}
	for _, a := range articles {
		if !keep(a) {
			continue
		}
		for _, kw := range a.Keywords() {
			if filter.ValidKeyword(kw) {
				counts[kw]++
			}
		}
	}
	return counts
}

func rank(counts map[string]int) []model.KeywordStat {
	out := make([]model.KeywordStat, 0, len(counts))
	for k, n := range counts {
		out = append(out, model.KeywordStat{Keyword: k, Count: n})
	}
	slices.SortFunc(out, func(a, b model.KeywordStat) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Keyword, b.Keyword)
	})
	return out
}

func topKeywords(ranked []model.KeywordStat, n int) []model.KeywordStat {
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return slices.Clone(ranked)
}

// dateBuckets returns the TrendDays calendar days ending today, oldest first.
func dateBuckets(now time.Time) []string {
	dates := make([]string, TrendDays)
	for i := range TrendDays {
		dates[i] = now.AddDate(0, 0, i-(TrendDays-1)).Format(dateLayout)
	}
	return dates
}

func keywordTrend(articles []model.Article, dates, keywords []string, loc *time.Location) []model.KeywordTrend {
	wanted := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		wanted[k] = true
	}
	daily := map[string]map[string]int{}
	for _, a := range articles {
		d := a.Date()
		if d.IsZero() {
			continue
		}
		day := d.In(loc).Format(dateLayout)
		for _, kw := range a.Keywords() {
			if !wanted[kw] {
				continue
			}
			if daily[day] == nil {
				daily[day] = map[string]int{}
			}
			daily[day][kw]++
		}
	}

	out := make([]model.KeywordTrend, 0, len(dates))
	for _, day := range dates {
		row := make(map[string]int, len(keywords))
		for _, k := range keywords {
			row[k] = daily[day][k]
		}
		out = append(out, model.KeywordTrend{Date: day, Keywords: row})
	}
	return out
}

func sourceTrend(articles []model.Article, dates []string, loc *time.Location) []model.SourceTrend {
	names := map[string]bool{}
	daily := map[string]map[string]int{}
	for _, a := range articles {
		name := a.SourceName()
		names[name] = true
		if a.PublishTime.IsZero() {
			continue
		}
		day := a.PublishTime.In(loc).Format(dateLayout)
		if daily[day] == nil {
			daily[day] = map[string]int{}
		}
		daily[day][name]++
	}

	out := make([]model.SourceTrend, 0, len(dates))
	for _, day := range dates {
		row := make(map[string]int, len(names))
		for n := range names {
			row[n] = daily[day][n]
		}
		out = append(out, model.SourceTrend{Date: day, Sources: row})
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
