package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Params holds the page a list request asked for. Pages are zero-based.
type Params struct {
	Page      int
	Requested bool
}

// FromContext extracts the page parameter from the echo context. A missing
// or malformed page leaves Requested unset so the stored page is kept.
func FromContext(c echo.Context) Params {
	raw := c.QueryParam("page")
	if raw == "" {
		return Params{}
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return Params{}
	}
	if page < 0 {
		page = 0
	}
	return Params{Page: page, Requested: true}
}

// Ptr returns the requested page, or nil when none was requested.
func (p Params) Ptr() *int {
	if !p.Requested {
		return nil
	}
	page := p.Page
	return &page
}

// Links are the navigation hrefs of a paged list view.
type Links struct {
	Self     string `json:"self"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// PageLinks builds navigation links for page out of totalPages. query holds
// the active filters; its page value is replaced.
func PageLinks(basePath string, query url.Values, page, totalPages int) Links {
	link := func(n int) string {
		q := url.Values{}
		for k, vs := range query {
			if k == "page" {
				continue
			}
			for _, v := range vs {
				if v != "" {
					q.Add(k, v)
				}
			}
		}
		q.Set("page", strconv.Itoa(n))
		return basePath + "?" + q.Encode()
	}

	links := Links{Self: link(page)}
	if page+1 < totalPages {
		links.Next = link(page + 1)
	}
	if page > 0 && totalPages > 0 {
		prev := page - 1
		if prev >= totalPages {
			prev = totalPages - 1
		}
		links.Previous = link(prev)
	}
	return links
}
