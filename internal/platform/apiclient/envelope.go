package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a server-assigned identifier. Backend services disagree on whether
// ids are JSON numbers or strings, so both decode into the same type.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int returns the id as an integer when it is numeric.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// Page is the single list envelope used inside the dashboard.
//
// Legacy backend shapes and how they map onto it:
//
//	{"data": {"content": [...], "totalElements": n, "totalPages": p}}  doctors, patients, timings
//	{"content": [...], "totalPages": p}                                 sessions, session types
//	{"data": [...]}                                                     attribute records
//	[...]                                                               allergies, emergency contacts
//
// Missing totals are derived from the content length.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
	Size          int `json:"size"`
}

type pageProbe struct {
	Data          json.RawMessage `json:"data"`
	Content       json.RawMessage `json:"content"`
	TotalElements *int            `json:"totalElements"`
	TotalPages    *int            `json:"totalPages"`
	Number        int             `json:"number"`
	Size          int             `json:"size"`
}

// DecodePage normalizes any of the legacy list shapes into a Page.
func DecodePage[T any](raw []byte) (*Page[T], error) {
	raw = bytes.TrimSpace(raw)
	page := &Page[T]{}
	if len(raw) == 0 {
		page.Content = []T{}
		return page, nil
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &page.Content); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return page.fill(nil, nil), nil
	}

	var probe pageProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode page envelope: %w", err)
	}

	data := bytes.TrimSpace(probe.Data)
	switch {
	case len(data) > 0 && data[0] == '{':
		return DecodePage[T](data)
	case len(data) > 0 && data[0] == '[':
		if err := json.Unmarshal(data, &page.Content); err != nil {
			return nil, fmt.Errorf("decode data list: %w", err)
		}
		return page.fill(probe.TotalElements, probe.TotalPages), nil
	}

	if len(probe.Content) > 0 && !bytes.Equal(bytes.TrimSpace(probe.Content), []byte("null")) {
		if err := json.Unmarshal(probe.Content, &page.Content); err != nil {
			return nil, fmt.Errorf("decode content: %w", err)
		}
	}
	page.Number = probe.Number
	page.Size = probe.Size
	return page.fill(probe.TotalElements, probe.TotalPages), nil
}

func (p *Page[T]) fill(totalElements, totalPages *int) *Page[T] {
	if p.Content == nil {
		p.Content = []T{}
	}
	if totalElements != nil {
		p.TotalElements = *totalElements
	} else {
		p.TotalElements = len(p.Content)
	}
	switch {
	case totalPages != nil:
		p.TotalPages = *totalPages
	case len(p.Content) > 0:
		p.TotalPages = 1
	}
	return p
}

// DecodeOne unwraps a single record from either {"data": {...}} or a bare
// object. An empty body yields nil.
func DecodeOne[T any](raw []byte) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err == nil {
		data, hasData := probe["data"]
		_, hasID := probe["id"]
		data = bytes.TrimSpace(data)
		if hasData && !hasID && len(data) > 0 && data[0] == '{' {
			raw = data
		}
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &out, nil
}
