package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"werss_bot/internal/model"
)

// Export scopes.
const (
	ScopeAll      = "all"
	ScopeSelected = "selected"
)

// Export formats.
var ExportFormats = []string{"md", "docx", "json", "csv", "pdf"}

// ErrNoFormat is returned when an export request selects no format.
var ErrNoFormat = errors.New("select at least one export format")

// ExportRequest describes an article export job.
type ExportRequest struct {
	MpID         string
	Scope        string
	DocIDs       []string
	Formats      []string `validate:"min=1,dive,oneof=md docx json csv pdf"`
	PageSize     int
	PageCount    int
	AddTitle     bool
	RemoveImages bool
	RemoveLinks  bool
	ZipFilename  string
}

type exportBody struct {
	MpID         string   `json:"mp_id"`
	DocID        []string `json:"doc_id,omitempty"`
	PageSize     int      `json:"page_size"`
	PageCount    int      `json:"page_count"`
	AddTitle     bool     `json:"add_title"`
	RemoveImages bool     `json:"remove_images"`
	RemoveLinks  bool     `json:"remove_links"`
	ExportMD     bool     `json:"export_md"`
	ExportDocx   bool     `json:"export_docx"`
	ExportJSON   bool     `json:"export_json"`
	ExportCSV    bool     `json:"export_csv"`
	ExportPDF    bool     `json:"export_pdf"`
	ZipFilename  string   `json:"zip_filename,omitempty"`
}

// body shapes the request into the backend's flag form.
func (r ExportRequest) body() (exportBody, error) {
	b := exportBody{
		MpID:         r.MpID,
		PageSize:     r.PageSize,
		PageCount:    r.PageCount,
		AddTitle:     r.AddTitle,
		RemoveImages: r.RemoveImages,
		RemoveLinks:  r.RemoveLinks,
		ZipFilename:  r.ZipFilename,
	}
	if b.PageSize <= 0 {
		b.PageSize = model.DefaultPageSize
	}
	if b.PageCount <= 0 {
		b.PageCount = 1
	}

	for _, f := range r.Formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "md":
			b.ExportMD = true
		case "docx":
			b.ExportDocx = true
		case "json":
			b.ExportJSON = true
		case "csv":
			b.ExportCSV = true
		case "pdf":
			b.ExportPDF = true
		}
	}
	if !b.ExportMD && !b.ExportDocx && !b.ExportJSON && !b.ExportCSV && !b.ExportPDF {
		return exportBody{}, ErrNoFormat
	}

	if r.Scope == ScopeSelected {
		for _, id := range r.DocIDs {
			switch id = strings.TrimSpace(id); id {
			case "", "undefined", "null":
			default:
				b.DocID = append(b.DocID, id)
			}
		}
	}
	return b, nil
}

// ExportArticles starts an export job and returns the backend's reply.
func (a *API) ExportArticles(ctx context.Context, r ExportRequest) (map[string]any, error) {
	body, err := r.body()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := a.b.Post(ctx, path("tools", "export", "articles"), nil, body, &out); err != nil {
		return nil, fmt.Errorf("export articles: %w", err)
	}
	return out, nil
}

// ListExports returns the export archives for mpID, or for all when empty.
func (a *API) ListExports(ctx context.Context, mpID string) ([]model.ExportRecord, error) {
	q := url.Values{}
	if mpID != "" {
		q.Set("mp_id", mpID)
	}
	var out []model.ExportRecord
	if err := a.b.Get(ctx, path("tools", "export", "list"), q, &out); err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	return out, nil
}

// DownloadExport fetches an export archive.
func (a *API) DownloadExport(ctx context.Context, filename, mpID string) (*model.ExportFile, error) {
	q := url.Values{"filename": {filename}}
	if mpID != "" {
		q.Set("mp_id", mpID)
	}
	f, err := a.b.Download(ctx, path("tools", "export", "download"), q)
	if err != nil {
		return nil, fmt.Errorf("download export: %w", err)
	}
	name := f.Name
	if name == "" {
		name = filename
	}
	return &model.ExportFile{Name: name, ContentType: f.ContentType, Data: f.Data}, nil
}

// DeleteExport removes an export archive.
func (a *API) DeleteExport(ctx context.Context, filename, mpID string) error {
	in := map[string]string{"filename": filename, "mp_id": mpID}
	if err := a.b.Delete(ctx, path("tools", "export", "delete"), nil, in, nil); err != nil {
		return fmt.Errorf("delete export: %w", err)
	}
	return nil
}

// Subscription list export formats.
const (
	SubsCSV  = "csv"
	SubsOPML = "opml"
)

// ExportSubscriptions downloads the subscription list as CSV or OPML.
func (a *API) ExportSubscriptions(ctx context.Context, format string) (*model.ExportFile, error) {
	var p, fallback string
	switch format {
	case SubsCSV, "":
		p, fallback = path("export", "mps", "export"), "subscriptions.csv"
	case SubsOPML:
		p, fallback = path("export", "mps", "opml"), "subscriptions.opml"
	default:
		return nil, fmt.Errorf("unknown subscription export format %q", format)
	}
	f, err := a.b.Download(ctx, p, nil)
	if err != nil {
		return nil, fmt.Errorf("export subscriptions: %w", err)
	}
	name := f.Name
	if name == "" {
		name = fallback
	}
	return &model.ExportFile{Name: name, ContentType: f.ContentType, Data: f.Data}, nil
}

// UploadImage stores an avatar or cover image and returns its URL.
func (a *API) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := a.b.Upload(ctx, path("user", "upload"), filename, r, &out); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if out.URL == "" {
		return "", errors.New("upload image: empty url in response")
	}
	return out.URL, nil
}
