// Package api wraps the backend resources. Each function shapes request
// parameters and decodes the unwrapped payload; errors are passed through
// unchanged so callers can inspect them.
package api

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"werss_bot/internal/client"
	"werss_bot/internal/model"
)

// Prefix is the path under the API base that every resource lives in.
const Prefix = "wx/"

// Backend is the transport the resource functions run on.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, query url.Values, in, out any) error
	Put(ctx context.Context, path string, query url.Values, in, out any) error
	Delete(ctx context.Context, path string, query url.Values, in, out any) error
	PostForm(ctx context.Context, path string, form url.Values, out any) error
	Upload(ctx context.Context, path, filename string, r io.Reader, out any) error
	Download(ctx context.Context, path string, query url.Values) (*client.File, error)
}

// API groups the resource calls for one authenticated backend session.
type API struct {
	b Backend
}

// New returns an API bound to b.
func New(b Backend) *API {
	return &API{b: b}
}

// Page selects a slice of a list. Page is a 0-based index for offset
// endpoints and a 1-based number for page endpoints.
type Page struct {
	Page     int
	PageSize int
}

// Size returns the page size, defaulting to model.DefaultPageSize.
func (p Page) Size() int {
	if p.PageSize <= 0 {
		return model.DefaultPageSize
	}
	return p.PageSize
}

// Offset returns the first row of the page.
func (p Page) Offset() int {
	if p.Page < 0 {
		return 0
	}
	return p.Page * p.Size()
}

// Number returns the 1-based page number.
func (p Page) Number() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

func (p Page) offsetQuery() url.Values {
	return url.Values{
		"offset": {strconv.Itoa(p.Offset())},
		"limit":  {strconv.Itoa(p.Size())},
	}
}

func (p Page) numberQuery() url.Values {
	return url.Values{
		"page":      {strconv.Itoa(p.Number())},
		"page_size": {strconv.Itoa(p.Size())},
	}
}

// Paginate returns the page of items starting at p.Offset().
func Paginate[T any](items []T, p Page) []T {
	start := p.Offset()
	if start >= len(items) {
		return nil
	}
	end := min(start+p.Size(), len(items))
	return items[start:end]
}

func path(parts ...string) string {
	s := Prefix
	for i, p := range parts {
		if i > 0 {
			s += "/"
		}
		s += url.PathEscape(p)
	}
	return s
}
