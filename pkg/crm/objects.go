package crm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Standard object type names. Custom object types are tenant specific and
// come from configuration.
const (
	ObjectContacts  = "contacts"
	ObjectCompanies = "companies"
	ObjectTickets   = "tickets"
)

// Properties is the loosely typed property bag of a CRM record. Absent and
// null properties both read as "".
type Properties map[string]string

// Get returns the first non-empty value among keys.
func (p Properties) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(p[k]); v != "" {
			return v
		}
	}
	return ""
}

// Object is a CRM record (contact, company or custom object).
type Object struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
	CreatedAt  string     `json:"createdAt,omitempty"`
	UpdatedAt  string     `json:"updatedAt,omitempty"`
	Archived   bool       `json:"archived,omitempty"`
}

// Filter is one (field, operator, value) triple of a search filter group.
type Filter struct {
	PropertyName string   `json:"propertyName"`
	Operator     string   `json:"operator"`
	Value        string   `json:"value,omitempty"`
	Values       []string `json:"values,omitempty"`
}

// FilterGroup combines its filters with AND. Groups are combined with OR.
type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

// Sort orders search results.
type Sort struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

// SearchRequest is the body of the object search endpoint.
type SearchRequest struct {
	FilterGroups []FilterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Sorts        []Sort        `json:"sorts,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	After        string        `json:"after,omitempty"`
}

// Paging carries the cursor of paginated responses.
type Paging struct {
	Next *struct {
		After string `json:"after"`
	} `json:"next,omitempty"`
}

func (p *Paging) after() string {
	if p == nil || p.Next == nil {
		return ""
	}
	return p.Next.After
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Total   int      `json:"total"`
	Results []Object `json:"results"`
	Paging  *Paging  `json:"paging,omitempty"`
}

// Eq builds a single-group equality search.
func Eq(property, value string) FilterGroup {
	return FilterGroup{Filters: []Filter{{PropertyName: property, Operator: "EQ", Value: value}}}
}

func objectPath(objectType string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/crm/v3/objects/")
	b.WriteString(url.PathEscape(objectType))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

func propertiesQuery(props []string) url.Values {
	if len(props) == 0 {
		return nil
	}
	return url.Values{"properties": {strings.Join(props, ",")}}
}

// GetObject reads one record with the requested properties.
func (c *Client) GetObject(ctx context.Context, objectType, id string, props []string) (*Object, error) {
	var o Object
	if err := c.Do(ctx, http.MethodGet, objectPath(objectType, id), propertiesQuery(props), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// BatchRead reads many records of one type in a single call.
func (c *Client) BatchRead(ctx context.Context, objectType string, ids []string, props []string) ([]Object, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	type input struct {
		ID string `json:"id"`
	}
	body := struct {
		Inputs     []input  `json:"inputs"`
		Properties []string `json:"properties,omitempty"`
	}{Properties: props}
	for _, id := range ids {
		body.Inputs = append(body.Inputs, input{ID: id})
	}

	var out struct {
		Results []Object `json:"results"`
	}
	if err := c.Do(ctx, http.MethodPost, objectPath(objectType, "batch", "read"), nil, body, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Search runs one page of a filter-group search.
func (c *Client) Search(ctx context.Context, objectType string, req SearchRequest) (*SearchResult, error) {
	var out SearchResult
	if err := c.Do(ctx, http.MethodPost, objectPath(objectType, "search"), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchAll follows the paging cursor until the result set is exhausted or
// max records were collected (max <= 0 means no cap).
func (c *Client) SearchAll(ctx context.Context, objectType string, req SearchRequest, max int) ([]Object, error) {
	var all []Object
	for {
		page, err := c.Search(ctx, objectType, req)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if max > 0 && len(all) >= max {
			return all[:max], nil
		}
		next := page.Paging.after()
		if next == "" {
			return all, nil
		}
		req.After = next
	}
}

// CreateObject creates a record and returns it.
func (c *Client) CreateObject(ctx context.Context, objectType string, props map[string]string) (*Object, error) {
	var o Object
	body := map[string]any{"properties": props}
	if err := c.Do(ctx, http.MethodPost, objectPath(objectType), nil, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateObject patches the given properties of a record.
func (c *Client) UpdateObject(ctx context.Context, objectType, id string, props map[string]string) (*Object, error) {
	var o Object
	body := map[string]any{"properties": props}
	if err := c.Do(ctx, http.MethodPatch, objectPath(objectType, id), nil, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
