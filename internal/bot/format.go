package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"werss_bot/internal/cronexpr"
	"werss_bot/internal/dashboard"
	"werss_bot/internal/fetcher"
	"werss_bot/internal/model"
)

const (
	timeLayout = "2006-01-02 15:04"

	statusEnabled  = "enabled"
	statusDisabled = "disabled"

	articleTextLimit = 3000
	introLimit       = 80
	nextRuns         = 3
	trendDays        = 7
)

// ListPage locates a page within a list.
type ListPage struct {
	Page  int
	Size  int
	Total int
}

// Pages returns the number of pages, at least 1.
func (p ListPage) Pages() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

// First returns the 1-based position of the first row on the page.
func (p ListPage) First() int {
	return (p.Page-1)*p.Size + 1
}

func (p ListPage) String() string {
	return fmt.Sprintf("Page %d/%d, %d total", p.Page, p.Pages(), p.Total)
}

func enabledLabel(on bool) string {
	if on {
		return statusEnabled
	}
	return statusDisabled
}

// FormatSettings formats the chat's list preferences.
func FormatSettings(s *model.Session) string {
	var b strings.Builder
	b.WriteString("Settings:\n")
	fmt.Fprintf(&b, "Page size: %d\n", s.EffectivePageSize())
	fmt.Fprintf(&b, "Compact lists: %s\n", onOff(s.Compact))
	if s.SelectedMpID != "" {
		fmt.Fprintf(&b, "Selected subscription: %s\n", s.SelectedMpID)
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// FormatWhoami formats the logged in account.
func FormatWhoami(u *model.User, s *model.Session, info TokenInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Logged in as %s", u.Username)
	if u.Nickname != "" {
		fmt.Fprintf(&b, " (%s)", u.Nickname)
	}
	b.WriteString("\n")
	if u.Role != "" {
		fmt.Fprintf(&b, "Role: %s\n", u.Role)
	}
	if u.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", u.Email)
	}
	if info.Subject != "" && info.Subject != u.Username {
		fmt.Fprintf(&b, "Token subject: %s\n", info.Subject)
	}
	switch {
	case info.ExpiresAt != nil:
		fmt.Fprintf(&b, "Token expires: %s\n", info.ExpiresAt.Format(timeLayout))
	case s.TokenExpiresAt != nil:
		fmt.Fprintf(&b, "Token expires: %s\n", s.TokenExpiresAt.Format(timeLayout))
	default:
		b.WriteString("Token expires: unknown\n")
	}
	return b.String()
}

// FormatSubscriptionList formats one page of subscriptions.
func FormatSubscriptionList(subs []model.Subscription, selected string, p ListPage, compact bool) string {
	if len(subs) == 0 {
		return "No subscriptions found. Use /searchmp or /addsub to add one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Subscriptions (%s):\n", p)
	for i, s := range subs {
		mark := ""
		if s.Key() == selected {
			mark = " *"
		}
		if compact {
			fmt.Fprintf(&b, "%d. %s [%s]%s\n", p.First()+i, s.Name, s.Key(), mark)
			continue
		}
		fmt.Fprintf(&b, "\n%d. %s%s\n", p.First()+i, s.Name, mark)
		fmt.Fprintf(&b, "   ID: %s  [%s]\n", s.Key(), enabledLabel(s.Enabled()))
		fmt.Fprintf(&b, "   Articles: %d, last sync: %s\n", s.ArticleCount, s.SyncTime.Format(timeLayout))
	}
	if selected != "" {
		b.WriteString("\n* selected for /articles")
	}
	return b.String()
}

// FormatSubscription formats one subscription with its feed address.
func FormatSubscription(s *model.Subscription, rssURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", s.Name, enabledLabel(s.Enabled()))
	fmt.Fprintf(&b, "ID: %s\n", s.Key())
	if s.Intro != "" {
		fmt.Fprintf(&b, "Intro: %s\n", s.Intro)
	}
	fmt.Fprintf(&b, "Articles: %d\n", s.ArticleCount)
	fmt.Fprintf(&b, "Last sync: %s\n", s.SyncTime.Format(timeLayout))
	if s.MinPublishTime != nil && s.MaxPublishTime != nil {
		fmt.Fprintf(&b, "Published: %s to %s\n", s.MinPublishTime.Format(timeLayout), s.MaxPublishTime.Format(timeLayout))
	}
	if rssURL != "" {
		fmt.Fprintf(&b, "RSS: %s\n", rssURL)
	}
	if s.Cover != "" {
		fmt.Fprintf(&b, "Avatar: %s\n", s.Cover)
	}
	return b.String()
}

// FormatMpItems formats public account search results with ready-to-use
// /addsub commands.
func FormatMpItems(items []model.MpItem) string {
	if len(items) == 0 {
		return "No public accounts found."
	}
	var b strings.Builder
	b.WriteString("Public accounts:\n")
	for i, it := range items {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, it.Name)
		fmt.Fprintf(&b, "/addsub name=%q mp_id=%s avatar=%s\n", it.Name, it.MpID, it.Avatar)
	}
	return b.String()
}

// FormatPreview formats the items of an RSS preview.
func FormatPreview(res *fetcher.Result, kw string) string {
	var b strings.Builder
	title := res.Title
	if title == "" {
		title = "Feed"
	}
	if kw != "" {
		fmt.Fprintf(&b, "%s: %d items match %q, showing %d\n", title, res.Total, kw, len(res.Items))
	} else {
		fmt.Fprintf(&b, "%s: %d items, showing %d\n", title, res.Total, len(res.Items))
	}
	if len(res.Items) == 0 {
		b.WriteString("\nNo items.")
		return b.String()
	}
	for i, it := range res.Items {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, it.Title)
		if it.Description != "" {
			fmt.Fprintf(&b, "%s\n", fetcher.Truncate(it.Description, introLimit*2))
		}
		if it.Link != "" {
			fmt.Fprintf(&b, "%s\n", it.Link)
		}
	}
	return b.String()
}

// FormatArticleList formats one page of articles.
func FormatArticleList(arts []model.Article, source string, p ListPage, compact bool) string {
	var b strings.Builder
	if source != "" {
		fmt.Fprintf(&b, "Articles of %s (%s):\n", source, p)
	} else {
		fmt.Fprintf(&b, "Articles (%s):\n", p)
	}
	if len(arts) == 0 {
		b.WriteString("\nNo articles found.")
		return b.String()
	}
	for _, a := range arts {
		if compact {
			fmt.Fprintf(&b, "#%s %s\n", a.ID, a.Title)
			continue
		}
		fmt.Fprintf(&b, "\n#%s %s\n", a.ID, a.Title)
		fmt.Fprintf(&b, "   %s, %s\n", a.SourceName(), a.PublishTime.Format(timeLayout))
	}
	return b.String()
}

// FormatArticle formats one article with its text content.
func FormatArticle(a *model.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", a.Title)
	fmt.Fprintf(&b, "%s, %s [%s]\n", a.SourceName(), a.PublishTime.Format(timeLayout), a.StatusLabel())
	if kws := a.Keywords(); len(kws) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(kws, ", "))
	}
	if a.URL != "" {
		fmt.Fprintf(&b, "%s\n", a.URL)
	}
	text := ArticleText(a.Content)
	if text == "" {
		text = strings.TrimSpace(a.Description)
	}
	if text == "" {
		text = "(no content, use /refetch to fetch it again)"
	}
	b.WriteString("\n")
	b.WriteString(fetcher.Truncate(text, articleTextLimit))
	return b.String()
}

// ArticleText converts article HTML into plain text with one line per block
// element. Images become an [image] marker.
func ArticleText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fetcher.PlainText(html)
	}
	doc.Find("script, style").Remove()
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("[image]")
	})
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})
	doc.Find("p, div, section, li, h1, h2, h3, h4, h5, h6, blockquote, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatTagList formats one page of tags.
func FormatTagList(tags []model.Tag, p ListPage, compact bool) string {
	if len(tags) == 0 {
		return "No tags found. Use /addtag to create one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tags (%s):\n", p)
	for _, t := range tags {
		if compact {
			fmt.Fprintf(&b, "#%s %s [%s]\n", t.ID, t.Name, t.StatusLabel())
			continue
		}
		fmt.Fprintf(&b, "\n#%s %s [%s]\n", t.ID, t.Name, t.StatusLabel())
		if t.Intro != "" {
			fmt.Fprintf(&b, "   %s\n", fetcher.Truncate(t.Intro, introLimit))
		}
		if mps, err := t.Mps(); err == nil && len(mps) > 0 {
			fmt.Fprintf(&b, "   Subscriptions: %s\n", mpNames(mps))
		}
	}
	return b.String()
}

func mpNames(refs []model.MpRef) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Name != "" {
			names = append(names, r.Name)
		} else {
			names = append(names, r.ID)
		}
	}
	return strings.Join(names, ", ")
}

// FormatTaskList formats one page of message tasks.
func FormatTaskList(tasks []model.MessageTask, p ListPage) string {
	if len(tasks) == 0 {
		return "No message tasks. Use /addtask to create one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Message tasks (%s):\n", p)
	for _, t := range tasks {
		fmt.Fprintf(&b, "\n#%s %s [%s, %s]\n", t.ID, t.Title(), t.TypeLabel(), enabledLabel(t.Status == model.TaskEnabled))
		fmt.Fprintf(&b, "   %s\n", cronexpr.Describe(t.CronExp))
	}
	return b.String()
}

// FormatTask formats one message task with its upcoming run times.
func FormatTask(t *model.MessageTask, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%s %s [%s]\n", t.ID, t.Title(), enabledLabel(t.Status == model.TaskEnabled))
	fmt.Fprintf(&b, "Type: %s\n", t.TypeLabel())
	fmt.Fprintf(&b, "Schedule: %s (%s)\n", t.CronExp, cronexpr.Describe(t.CronExp))
	if runs, err := cronexpr.Next(t.CronExp, now, nextRuns); err == nil && len(runs) > 0 {
		b.WriteString("Next runs:\n")
		for _, r := range runs {
			fmt.Fprintf(&b, "  %s\n", r.Format(timeLayout))
		}
	}
	if t.MessageType == model.MessageTypeWebhook {
		fmt.Fprintf(&b, "Webhook: %s\n", t.WebHookURL)
	}
	mps, err := t.Mps()
	switch {
	case err != nil:
		b.WriteString("Subscriptions: (unreadable)\n")
	case len(mps) == 0:
		b.WriteString("Subscriptions: all\n")
	default:
		fmt.Fprintf(&b, "Subscriptions: %s\n", mpNames(mps))
	}
	if t.MessageTemplate != "" {
		fmt.Fprintf(&b, "\nTemplate:\n%s\n", fetcher.Truncate(t.MessageTemplate, articleTextLimit/3))
	}
	return b.String()
}

// FormatApiKeyList formats one page of API keys.
func FormatApiKeyList(keys []model.ApiKey, p ListPage) string {
	if len(keys) == 0 {
		return "No API keys. Use /addkey to create one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "API keys (%s):\n", p)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n#%s %s [%s, %s]\n", k.ID, k.Name, k.Permissions, enabledLabel(k.IsActive))
		lastUsed := "never"
		if k.LastUsedAt != nil && !k.LastUsedAt.IsZero() {
			lastUsed = k.LastUsedAt.Format(timeLayout)
		}
		fmt.Fprintf(&b, "   created %s, last used %s\n", k.CreatedAt.Format(timeLayout), lastUsed)
	}
	return b.String()
}

// FormatNewKey formats a freshly issued key. The secret is only shown here.
func FormatNewKey(k *model.ApiKey, verb string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "API key #%s %s %s [%s].\n", k.ID, k.Name, verb, k.Permissions)
	if k.Key != "" {
		fmt.Fprintf(&b, "\nSecret: %s\n\nStore it now. It is cached for /keysecret %s but the backend will not show it again.", k.Key, k.ID)
	}
	return b.String()
}

// FormatApiKeyLogs formats one page of key usage records.
func FormatApiKeyLogs(keyID string, logs []model.ApiKeyLog, p ListPage) string {
	if len(logs) == 0 {
		return fmt.Sprintf("No usage recorded for API key #%s.", keyID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Usage of API key #%s (%s):\n", keyID, p)
	for _, l := range logs {
		fmt.Fprintf(&b, "%s %s %s -> %d", l.CreatedAt.Format(timeLayout), l.Method, l.Endpoint, l.StatusCode)
		if l.IPAddress != "" {
			fmt.Fprintf(&b, " from %s", l.IPAddress)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatConfigList formats one page of backend settings.
func FormatConfigList(cfgs []model.ConfigEntry, p ListPage) string {
	if len(cfgs) == 0 {
		return "No settings. Use /setconfig to add one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Settings (%s):\n", p)
	for _, c := range cfgs {
		fmt.Fprintf(&b, "\n%s = %s\n", c.Key, fetcher.Truncate(c.Value, introLimit))
		if c.Description != "" {
			fmt.Fprintf(&b, "   %s\n", c.Description)
		}
	}
	return b.String()
}

// FormatArticleTags lists the tags assigned to an article.
func FormatArticleTags(articleID string, tags []model.TagRef) string {
	if len(tags) == 0 {
		return fmt.Sprintf("Article #%s has no tags. Use /tagarticle %s <tag_id> to add one.", articleID, articleID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tags of article #%s:\n", articleID)
	for _, t := range tags {
		fmt.Fprintf(&b, "#%s %s\n", t.ID, t.Name)
	}
	return b.String()
}

// FormatDashboard formats the dashboard document.
func FormatDashboard(res *dashboard.Result) string {
	d := res.Data
	var b strings.Builder
	b.WriteString("Dashboard\n")
	if res.Reconstructed {
		fmt.Fprintf(&b, "(rebuilt from the latest %d articles)\n", dashboard.FetchLimit)
	}
	fmt.Fprintf(&b, "\nArticles: %d (today %d, last 7 days %d)\n", d.Stats.TotalArticles, d.Stats.TodayArticles, d.Stats.WeekArticles)
	fmt.Fprintf(&b, "Subscriptions: %d\n", d.Stats.TotalSources)

	if len(d.SourceStats) > 0 {
		b.WriteString("\nTop sources:\n")
		for i, s := range d.SourceStats {
			fmt.Fprintf(&b, "%2d. %s - %d (%.1f%%)\n", i+1, s.MpName, s.ArticleCount, s.Percentage)
		}
	}

	if len(d.KeywordStats) > 0 {
		b.WriteString("\nTop keywords")
		if d.KeywordFallback {
			b.WriteString(" (none in the last 30 days, all time)")
		}
		b.WriteString(":\n")
		parts := make([]string, 0, len(d.KeywordStats))
		for _, k := range d.KeywordStats {
			parts = append(parts, fmt.Sprintf("%s %d", k.Keyword, k.Count))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}

	if len(d.KeywordTrendData) > 0 {
		days := make([]string, 0, len(d.KeywordTrendData))
		series := make([]map[string]int, 0, len(d.KeywordTrendData))
		for _, day := range d.KeywordTrendData {
			days = append(days, day.Date)
			series = append(series, day.Keywords)
		}
		fmt.Fprintf(&b, "\nKeyword trend, %d days", len(days))
		if d.KeywordFallback {
			b.WriteString(" (all-time top keywords)")
		}
		b.WriteString(":\n")
		writeMatrix(&b, days, series, dashboard.TrendKeywords)
	}

	if n := len(d.TrendData); n > 0 {
		recent := d.TrendData[max(0, n-trendDays):]
		b.WriteString("\nDaily articles:\n")
		for _, day := range recent {
			total := 0
			for _, c := range day.Sources {
				total += c
			}
			fmt.Fprintf(&b, "%s  %d\n", day.Date, total)
		}

		days := make([]string, 0, n)
		series := make([]map[string]int, 0, n)
		for _, day := range d.TrendData {
			days = append(days, day.Date)
			series = append(series, day.Sources)
		}
		fmt.Fprintf(&b, "\nArticles by source, %d days:\n", n)
		writeMatrix(&b, days, series, dashboard.TopSources)
	}
	return b.String()
}

// writeMatrix writes one line per series name: its total over all buckets
// followed by the counts of the last trendDays buckets. Names are ordered by
// total, then alphabetically; names with no hits are skipped and at most
// limit lines are written.
func writeMatrix(b *strings.Builder, days []string, buckets []map[string]int, limit int) {
	totals := map[string]int{}
	for _, bucket := range buckets {
		for name, c := range bucket {
			totals[name] += c
		}
	}
	names := make([]string, 0, len(totals))
	for name, total := range totals {
		if total > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		b.WriteString("no activity\n")
		return
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}

	from := max(0, len(days)-trendDays)
	fmt.Fprintf(b, "(total | %s .. %s)\n", shortDate(days[from]), shortDate(days[len(days)-1]))
	for _, name := range names {
		counts := make([]string, 0, len(buckets)-from)
		for _, bucket := range buckets[from:] {
			counts = append(counts, strconv.Itoa(bucket[name]))
		}
		fmt.Fprintf(b, "%s: %d | %s\n", name, totals[name], strings.Join(counts, " "))
	}
}

// shortDate drops the year from a YYYY-MM-DD date.
func shortDate(d string) string {
	if len(d) == len("2006-01-02") {
		return d[5:]
	}
	return d
}

// FormatSysInfo formats the backend information document as sorted
// key/value lines. Nested objects are flattened with dotted keys.
func FormatSysInfo(info model.SysInfo) string {
	if len(info) == 0 {
		return "No system information."
	}
	var lines []string
	flatten("", info, &lines)
	sort.Strings(lines)
	return "System information:\n\n" + strings.Join(lines, "\n")
}

func flatten(prefix string, m map[string]any, lines *[]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, lines)
		case nil:
			*lines = append(*lines, key+": -")
		default:
			*lines = append(*lines, fmt.Sprintf("%s: %v", key, val))
		}
	}
}

// FormatResources formats a system resource snapshot.
func FormatResources(r *model.SysResources, now time.Time) string {
	var b strings.Builder
	b.WriteString("System resources\n\n")
	fmt.Fprintf(&b, "CPU: %.1f%% %s\n", r.CPU.Percent, usageBar(r.CPU.Percent))
	fmt.Fprintf(&b, "     %d cores, %d threads\n", r.CPU.Cores, r.CPU.Threads)
	fmt.Fprintf(&b, "Memory: %.1f%% %s\n", r.Memory.Percent, usageBar(r.Memory.Percent))
	fmt.Fprintf(&b, "     %.1f of %.1f GB used, %.1f GB free\n", r.Memory.Used, r.Memory.Total, r.Memory.Free)
	fmt.Fprintf(&b, "Disk: %.1f%% %s\n", r.Disk.Percent, usageBar(r.Disk.Percent))
	fmt.Fprintf(&b, "     %.1f of %.1f GB used, %.1f GB free\n", r.Disk.Used, r.Disk.Total, r.Disk.Free)
	fmt.Fprintf(&b, "\nUpdated %s", now.Format("15:04:05"))
	return b.String()
}

func usageBar(percent float64) string {
	const width = 10
	filled := int(percent/100*width + 0.5)
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// FormatExports formats the export archives of a subscription.
func FormatExports(list []model.ExportRecord, mpID string) string {
	if len(list) == 0 {
		return "No export archives."
	}
	var b strings.Builder
	b.WriteString("Export archives:\n")
	for _, r := range list {
		fmt.Fprintf(&b, "\n%s (%s, %s)\n", r.Filename, humanSize(r.Size), r.CreatedAt.Format(timeLayout))
		if mpID != "" {
			fmt.Fprintf(&b, "/download %s %s\n", r.Filename, mpID)
		} else {
			fmt.Fprintf(&b, "/download %s\n", r.Filename)
		}
	}
	return b.String()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
