package model

// DashboardStats holds the headline counters.
type DashboardStats struct {
	TotalArticles int `json:"totalArticles"`
	TotalSources  int `json:"totalSources"`
	TodayArticles int `json:"todayArticles"`
	WeekArticles  int `json:"weekArticles"`
}

// SourceStat is one row of the source distribution.
type SourceStat struct {
	MpID         string  `json:"mp_id"`
	MpName       string  `json:"mp_name"`
	ArticleCount int     `json:"article_count"`
	Percentage   float64 `json:"percentage"`
}

// KeywordStat is a keyword and its frequency.
type KeywordStat struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// KeywordTrend is one day bucket of the keyword matrix.
type KeywordTrend struct {
	Date     string         `json:"date"`
	Keywords map[string]int `json:"keywords"`
}

// SourceTrend is one day bucket of the source matrix.
type SourceTrend struct {
	Date    string         `json:"date"`
	Sources map[string]int `json:"sources"`
}

// DashboardData is the complete dashboard document.
type DashboardData struct {
	Stats            DashboardStats `json:"stats"`
	SourceStats      []SourceStat   `json:"sourceStats"`
	KeywordStats     []KeywordStat  `json:"keywordStats"`
	TrendData        []SourceTrend  `json:"trendData"`
	KeywordTrendData []KeywordTrend `json:"keywordTrendData,omitempty"`

	// KeywordFallback is set when the trend keywords come from the global
	// ranking because none occurred in the 30-day window.
	KeywordFallback bool `json:"keywordFallback,omitempty"`
}
