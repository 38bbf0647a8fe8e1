package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"werss_bot/internal/dashboard"
	"werss_bot/internal/model"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "empty", input: "", want: nil},
		{name: "words", input: "a  b\tc", want: []string{"a", "b", "c"}},
		{name: "double quotes", input: `name="Tech Weekly" x`, want: []string{"name=Tech Weekly", "x"}},
		{name: "single quotes", input: `cron='*/5 * * * *'`, want: []string{"cron=*/5 * * * *"}},
		{name: "escaped quote", input: `a\"b`, want: []string{`a"b`}},
		{name: "empty quoted", input: `name=""`, want: []string{"name="}},
		{name: "unterminated", input: `name="abc`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	got, err := ParseArgs(`MP_1 name="Tech Weekly" Avatar=http://x/a.png intro= a=b=c http://x?q=1`)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	want := Args{
		Positional: []string{"MP_1", "http://x?q=1"},
		Options: map[string]string{
			"name":   "Tech Weekly",
			"avatar": "http://x/a.png",
			"intro":  "",
			"a":      "b=c",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if !got.Has("intro") || got.Get("intro") != "" {
		t.Error("empty option should be present")
	}
	if got.Has("missing") {
		t.Error("missing option reported present")
	}
	if diff := cmp.Diff("http://x?q=1", got.Rest(1)); diff != "" {
		t.Errorf("Rest mismatch (-want +got):\n%s", diff)
	}
	if got.Arg(5) != "" {
		t.Error("out of range Arg should be empty")
	}
}

func TestParseListArgs(t *testing.T) {
	tests := []struct {
		input    string
		wantPage int
		wantKW   string
	}{
		{"", 1, ""},
		{"3", 3, ""},
		{"2 golang news", 2, "golang news"},
		{"golang", 1, "golang"},
		{"0", 1, ""},
		{"-4 x", 1, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			page, kw := ParseListArgs(tt.input)
			if diff := cmp.Diff(tt.wantPage, page); diff != "" {
				t.Errorf("page mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantKW, kw); diff != "" {
				t.Errorf("keyword mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseIDArg(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"MP_WXS_123", "MP_WXS_123", false},
		{"  42 extra", "42", false},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseIDArg(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("id mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSwitch(t *testing.T) {
	for _, in := range []string{"on", "ON", "true", "yes", "1"} {
		if v, err := ParseSwitch(in); err != nil || !v {
			t.Errorf("ParseSwitch(%q) = %v, %v; want true", in, v, err)
		}
	}
	for _, in := range []string{"off", "false", "no", "0"} {
		if v, err := ParseSwitch(in); err != nil || v {
			t.Errorf("ParseSwitch(%q) = %v, %v; want false", in, v, err)
		}
	}
	if _, err := ParseSwitch("maybe"); err == nil {
		t.Error("expected error for maybe")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" md, csv,,pdf ")
	if diff := cmp.Diff([]string{"md", "csv", "pdf"}, got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if got := SplitList(""); got != nil {
		t.Errorf("empty input should give nil, got %v", got)
	}
}

func TestArticleText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "paragraphs", input: "<p>Hello</p><p>World</p>", want: "Hello\nWorld"},
		{name: "nested sections", input: "<section><section><p>One</p></section><p>Two</p></section>", want: "One\nTwo"},
		{name: "line break", input: "<p>a<br>b</p>", want: "a\nb"},
		{name: "image marker", input: `<p>Look <img src="x.png"> here</p>`, want: "Look [image] here"},
		{name: "script dropped", input: "<p>Text</p><script>alert(1)</script><style>p{}</style>", want: "Text"},
		{name: "whitespace collapsed", input: "<p>  many   spaces\n here </p>", want: "many spaces\nhere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ArticleText(tt.input)); diff != "" {
				t.Errorf("text mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListPage(t *testing.T) {
	tests := []struct {
		p         ListPage
		wantPages int
		wantFirst int
	}{
		{ListPage{Page: 1, Size: 10, Total: 0}, 1, 1},
		{ListPage{Page: 1, Size: 10, Total: 10}, 1, 1},
		{ListPage{Page: 2, Size: 10, Total: 11}, 2, 11},
		{ListPage{Page: 3, Size: 5, Total: 100}, 20, 11},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.wantPages, tt.p.Pages()); diff != "" {
			t.Errorf("%+v pages mismatch (-want +got):\n%s", tt.p, diff)
		}
		if diff := cmp.Diff(tt.wantFirst, tt.p.First()); diff != "" {
			t.Errorf("%+v first mismatch (-want +got):\n%s", tt.p, diff)
		}
	}
	if diff := cmp.Diff("Page 2/2, 11 total", ListPage{Page: 2, Size: 10, Total: 11}.String()); diff != "" {
		t.Errorf("String mismatch (-want +got):\n%s", diff)
	}
}

func TestPagerRow(t *testing.T) {
	data := func(p ListPage, extra string) []string {
		var out []string
		for _, btn := range pagerRow(cmdSubs, p, extra) {
			out = append(out, *btn.CallbackData)
		}
		return out
	}

	if got := data(ListPage{Page: 1, Size: 10, Total: 5}, ""); got != nil {
		t.Errorf("single page should have no buttons, got %v", got)
	}
	if diff := cmp.Diff([]string{"subs:2:go"}, data(ListPage{Page: 1, Size: 10, Total: 25}, "go")); diff != "" {
		t.Errorf("first page mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"subs:1", "subs:3"}, data(ListPage{Page: 2, Size: 10, Total: 25}, "")); diff != "" {
		t.Errorf("middle page mismatch (-want +got):\n%s", diff)
	}
	long := strings.Repeat("x", maxCallbackData)
	if diff := cmp.Diff([]string{"subs:2"}, data(ListPage{Page: 3, Size: 10, Total: 25}, long)); diff != "" {
		t.Errorf("oversized keyword should be dropped (-want +got):\n%s", diff)
	}
}

func TestFormatSubscriptionList(t *testing.T) {
	subs := []model.Subscription{
		{MpID: "MP_1", Name: "Tech Weekly", Status: model.SubscriptionEnabled, ArticleCount: 12},
		{MpID: "MP_2", Name: "Go Daily", Status: model.SubscriptionDisabled},
	}
	p := ListPage{Page: 1, Size: 10, Total: 2}

	got := FormatSubscriptionList(subs, "MP_2", p, false)
	for _, want := range []string{"Page 1/1, 2 total", "1. Tech Weekly", "2. Go Daily *", "[disabled]", "Articles: 12"} {
		requireContains(t, got, want)
	}

	compact := FormatSubscriptionList(subs, "", p, true)
	requireContains(t, compact, "1. Tech Weekly [MP_1]")
	if strings.Contains(compact, "Articles:") {
		t.Errorf("compact list should omit details, got:\n%s", compact)
	}

	requireContains(t, FormatSubscriptionList(nil, "", p, false), "No subscriptions found")
}

func TestFormatTask(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	task := &model.MessageTask{
		ID:          "3",
		Name:        "Morning digest",
		MessageType: model.MessageTypeWebhook,
		WebHookURL:  "https://hooks.example.com/x",
		MpsID:       `[{"id":"MP_1","mp_name":"Tech Weekly"},"MP_2"]`,
		CronExp:     "30 8 * * *",
		Status:      model.TaskEnabled,
	}
	got := FormatTask(task, now)
	for _, want := range []string{
		"#3 Morning digest [enabled]",
		"Type: webhook",
		"Schedule: 30 8 * * * (every day at 08:30)",
		"2025-03-16 08:30",
		"2025-03-18 08:30",
		"Webhook: https://hooks.example.com/x",
		"Subscriptions: Tech Weekly, MP_2",
	} {
		requireContains(t, got, want)
	}

	task.MpsID = ""
	requireContains(t, FormatTask(task, now), "Subscriptions: all")
}

func TestFormatResources(t *testing.T) {
	r := &model.SysResources{
		Memory: model.UsageGB{Percent: 25, Total: 16, Used: 4, Free: 12},
		Disk:   model.UsageGB{Percent: 100, Total: 200, Used: 200},
	}
	r.CPU.Percent = 12.5
	r.CPU.Cores = 4
	r.CPU.Threads = 8

	got := FormatResources(r, time.Date(2025, 3, 15, 9, 5, 7, 0, time.UTC))
	for _, want := range []string{
		"CPU: 12.5% [#.........]",
		"4 cores, 8 threads",
		"Memory: 25.0% [###.......]",
		"4.0 of 16.0 GB used, 12.0 GB free",
		"Disk: 100.0% [##########]",
		"Updated 09:05:07",
	} {
		requireContains(t, got, want)
	}
}

func TestFormatDashboard(t *testing.T) {
	res := &dashboard.Result{
		Reconstructed: true,
		Data: &model.DashboardData{
			Stats:       model.DashboardStats{TotalArticles: 120, TotalSources: 3, TodayArticles: 2, WeekArticles: 9},
			SourceStats: []model.SourceStat{{MpName: "Tech Weekly", ArticleCount: 60, Percentage: 50}},
			KeywordStats: []model.KeywordStat{
				{Keyword: "AI", Count: 5},
				{Keyword: "Go", Count: 2},
			},
			KeywordFallback: true,
			TrendData: []model.SourceTrend{
				{Date: "2025-03-14", Sources: map[string]int{"A": 1, "B": 2}},
				{Date: "2025-03-15", Sources: map[string]int{"A": 4}},
			},
		},
	}
	got := FormatDashboard(res)
	for _, want := range []string{
		"rebuilt from the latest 100 articles",
		"Articles: 120 (today 2, last 7 days 9)",
		"Subscriptions: 3",
		" 1. Tech Weekly - 60 (50.0%)",
		"none in the last 30 days",
		"AI 5, Go 2",
		"2025-03-14  3",
		"2025-03-15  4",
	} {
		requireContains(t, got, want)
	}
}

func TestFormatDashboardTrends(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	article := func(name string, daysAgo int, kw ...string) model.Article {
		a := model.Article{MpName: name}
		a.PublishTime.Time = now.AddDate(0, 0, -daysAgo)
		for _, k := range kw {
			a.Tags = append(a.Tags, model.TagRef{Name: k})
		}
		return a
	}
	data := dashboard.Compute(dashboard.Input{Articles: []model.Article{
		article("Tech Weekly", 0, "Kubernetes", "Go"),
		article("Tech Weekly", 1, "Kubernetes"),
		article("Cloud Daily", 20, "Go"),
	}}, now)

	got := FormatDashboard(&dashboard.Result{Data: data})
	for _, want := range []string{
		"Keyword trend, 30 days:\n(total | 03-09 .. 03-15)\n",
		"Go: 2 | 0 0 0 0 0 0 1\n",
		"Kubernetes: 2 | 0 0 0 0 0 1 1\n",
		"Articles by source, 30 days:\n(total | 03-09 .. 03-15)\n",
		"Tech Weekly: 2 | 0 0 0 0 0 1 1\n",
		"Cloud Daily: 1 | 0 0 0 0 0 0 0\n",
	} {
		requireContains(t, got, want)
	}
	if strings.Contains(got, "all-time top keywords") {
		t.Error("unexpected fallback note")
	}

	fallback := FormatDashboard(&dashboard.Result{Data: &model.DashboardData{
		KeywordFallback: true,
		KeywordTrendData: []model.KeywordTrend{
			{Date: "2025-03-14", Keywords: map[string]int{"AI": 0}},
			{Date: "2025-03-15", Keywords: map[string]int{"AI": 0}},
		},
	}})
	requireContains(t, fallback, "Keyword trend, 2 days (all-time top keywords):\nno activity\n")
}

func TestFormatSysInfo(t *testing.T) {
	got := FormatSysInfo(model.SysInfo{
		"os":      "linux",
		"version": "1.4.2",
		"python":  map[string]any{"version": "3.11"},
		"gpu":     nil,
	})
	want := "System information:\n\ngpu: -\nos: linux\npython.version: 3.11\nversion: 1.4.2"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sysinfo mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatExports(t *testing.T) {
	got := FormatExports([]model.ExportRecord{{Filename: "MP_1_20250315.zip", Size: 2048}}, "MP_1")
	requireContains(t, got, "MP_1_20250315.zip (2.0 KiB")
	requireContains(t, got, "/download MP_1_20250315.zip MP_1")
	requireContains(t, FormatExports(nil, ""), "No export archives")
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, humanSize(tt.n)); diff != "" {
			t.Errorf("humanSize(%d) mismatch (-want +got):\n%s", tt.n, diff)
		}
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	got := tokenExpiry(&model.Token{AccessToken: "opaque", ExpiresIn: 3600}, now)
	if got == nil || !got.Equal(now.Add(time.Hour)) {
		t.Errorf("expires_in expiry = %v, want %v", got, now.Add(time.Hour))
	}

	exp := now.Add(48 * time.Hour)
	got = tokenExpiry(&model.Token{AccessToken: signedToken(t, "admin", exp)}, now)
	if got == nil || !got.Equal(exp) {
		t.Errorf("jwt expiry = %v, want %v", got, exp)
	}

	if got := tokenExpiry(&model.Token{AccessToken: "opaque"}, now); got != nil {
		t.Errorf("opaque token expiry = %v, want nil", got)
	}
}
