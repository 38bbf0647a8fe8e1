package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, srv.Client(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     string
		wantErr  error
		wantCode int
		wantMsg  string
		wantQ    bool
	}{
		{name: "data payload", status: 200, body: `{"code":0,"data":{"id":1}}`, want: `{"id":1}`},
		{name: "code 200 is success", status: 200, body: `{"code":200,"data":{"id":2}}`, want: `{"id":2}`},
		{name: "detail payload", status: 200, body: `{"code":0,"detail":[1,2]}`, want: `[1,2]`},
		{name: "whole body when no data", status: 200, body: `{"code":0,"message":"ok"}`, want: `{"code":0,"message":"ok"}`},
		{name: "no code", status: 200, body: `{"access_token":"t"}`, want: `{"access_token":"t"}`},
		{name: "non-json body", status: 200, body: `plain`, want: `plain`},
		{name: "code 401", status: 200, body: `{"code":401,"message":"expired"}`, wantErr: ErrUnauthorized},
		{name: "http 401", status: 401, body: `{}`, wantErr: ErrUnauthorized},
		{name: "business error", status: 200, body: `{"code":50001,"message":"boom"}`, wantCode: 50001, wantMsg: "boom"},
		{name: "default message", status: 200, body: `{"code":50001}`, wantCode: 50001, wantMsg: "request failed"},
		{name: "refresh limited is quiet", status: 200, body: `{"code":40402,"message":"wait"}`, wantCode: 40402, wantMsg: "wait", wantQ: true},
		{
			name:     "fastapi detail envelope",
			status:   400,
			body:     `{"detail":{"code":40001,"message":"bad mp"}}`,
			wantCode: 40001,
			wantMsg:  "bad mp",
		},
		{name: "detail string", status: 422, body: `{"detail":"invalid"}`, wantCode: 422, wantMsg: "invalid"},
		{name: "server error without body", status: 500, body: ``, wantCode: 500, wantMsg: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unwrap(tt.status, []byte(tt.body))
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.wantCode != 0:
				var ae *APIError
				if !errors.As(err, &ae) {
					t.Fatalf("err = %v, want *APIError", err)
				}
				if ae.Code != tt.wantCode || ae.Message != tt.wantMsg {
					t.Errorf("APIError = {%d %q}, want {%d %q}", ae.Code, ae.Message, tt.wantCode, tt.wantMsg)
				}
				if IsQuiet(err) != tt.wantQ {
					t.Errorf("IsQuiet = %v, want %v", IsQuiet(err), tt.wantQ)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if string(got) != tt.want {
					t.Errorf("payload = %s, want %s", got, tt.want)
				}
			}
		})
	}
}

func TestUnwrap_NotFoundKeepsBody(t *testing.T) {
	_, err := unwrap(404, []byte(`{"detail":"Not Found"}`))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Status != 404 || string(se.Body) != `{"detail":"Not Found"}` {
		t.Errorf("StatusError = %d %s", se.Status, se.Body)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound = false")
	}
}

func TestClient_Get(t *testing.T) {
	var gotReq *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		_, _ = io.WriteString(w, `{"code":0,"data":{"list":[{"id":"a"}],"total":1}}`)
	}, WithTokenSource(StaticToken("tok")))

	var out struct {
		List []struct {
			ID string `json:"id"`
		} `json:"list"`
		Total int `json:"total"`
	}
	q := url.Values{"offset": {"10"}, "limit": {"10"}}
	if err := c.Get(context.Background(), "/wx/mps", q, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if gotReq.URL.Path != "/api/v1/wx/mps" {
		t.Errorf("path = %q", gotReq.URL.Path)
	}
	if gotReq.URL.RawQuery != "limit=10&offset=10" {
		t.Errorf("query = %q", gotReq.URL.RawQuery)
	}
	if got := gotReq.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
	if gotReq.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if out.Total != 1 || len(out.List) != 1 || out.List[0].ID != "a" {
		t.Errorf("out = %+v", out)
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"code":0,"data":null}`)
	})
	if err := c.Get(context.Background(), "wx/user", nil, nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if auth != "" {
		t.Errorf("Authorization = %q, want empty", auth)
	}
}

func TestClient_PostJSON(t *testing.T) {
	var body map[string]any
	var ct string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ct = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"code":0,"data":{"ok":true}}`)
	})

	in := map[string]any{"mp_name": "News"}
	var out map[string]bool
	if err := c.Post(context.Background(), "wx/mps", nil, in, &out); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if diff := cmp.Diff(map[string]any{"mp_name": "News"}, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
	if !out["ok"] {
		t.Errorf("out = %v", out)
	}
}

func TestClient_PostForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("username") != "admin" {
			t.Errorf("username = %q", r.PostForm.Get("username"))
		}
		_, _ = io.WriteString(w, `{"access_token":"abc","token_type":"bearer"}`)
	})

	var out struct {
		AccessToken string `json:"access_token"`
	}
	form := url.Values{"username": {"admin"}, "password": {"pw"}}
	if err := c.PostForm(context.Background(), "wx/auth/token", form, &out); err != nil {
		t.Fatalf("PostForm: %v", err)
	}
	if out.AccessToken != "abc" {
		t.Errorf("AccessToken = %q", out.AccessToken)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := c.Get(context.Background(), "wx/user", nil, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if got := Message(err); !strings.Contains(got, "/login") {
		t.Errorf("Message = %q", got)
	}
}

func TestClient_Upload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "a.png" || string(data) != "PNG" {
			t.Errorf("upload = %s %q", hdr.Filename, data)
		}
		_, _ = io.WriteString(w, `{"code":0,"data":{"url":"http://x/a.png"}}`)
	})

	var out struct {
		URL string `json:"url"`
	}
	if err := c.Upload(context.Background(), "wx/user/upload", "a.png", strings.NewReader("PNG"), &out); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if out.URL != "http://x/a.png" {
		t.Errorf("URL = %q", out.URL)
	}
}

func TestClient_Download(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantName string
		wantData string
		wantErr  bool
	}{
		{
			name: "file",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/csv")
				w.Header().Set("Content-Disposition", `attachment; filename="mps.csv"`)
				_, _ = io.WriteString(w, "id,name\n")
			},
			wantName: "mps.csv",
			wantData: "id,name\n",
		},
		{
			name: "json error envelope",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"code":50001,"message":"no file"}`)
			},
			wantErr: true,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.NotFound(w, nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			f, err := c.Download(context.Background(), "wx/export/mps/export", nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Download: %v", err)
			}
			if f.Name != tt.wantName || string(f.Data) != tt.wantData {
				t.Errorf("file = %q %q", f.Name, f.Data)
			}
		})
	}
}

func TestClient_BodyTooLarge(t *testing.T) {
	archive := strings.Repeat("x", 64)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = io.WriteString(w, archive)
	}, WithMaxBodySize(32))

	if _, err := c.Download(context.Background(), "wx/export/download", nil); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Download err = %v, want ErrBodyTooLarge", err)
	}
	var out map[string]any
	if err := c.Get(context.Background(), "wx/articles", nil, &out); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Get err = %v, want ErrBodyTooLarge", err)
	}

	exact := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = io.WriteString(w, archive)
	}, WithMaxBodySize(int64(len(archive))))
	f, err := exact.Download(context.Background(), "wx/export/download", nil)
	if err != nil {
		t.Fatalf("Download at the limit: %v", err)
	}
	if len(f.Data) != len(archive) {
		t.Errorf("got %d bytes, want %d", len(f.Data), len(archive))
	}
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"code":0,"data":{}}`)
	}, WithMetrics(m))

	for range 2 {
		if err := c.Get(context.Background(), "wx/user", nil, nil); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != "werss_admin_api_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	if total != 2 {
		t.Errorf("requests = %v, want 2", total)
	}
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:8001", http.DefaultClient); err == nil {
		t.Error("expected error for relative base url")
	}
}

func TestRootURL(t *testing.T) {
	c, err := New("http://host:8001/prefix", http.DefaultClient)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.RootURL("/feed/MP1.rss")
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://host:8001/prefix/feed/MP1.rss" {
		t.Errorf("RootURL = %q", got)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&APIError{Code: 1, Message: "bad"}, "bad"},
		{&StatusError{Status: 404}, "Not found."},
		{errors.New("dial"), "dial"},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
