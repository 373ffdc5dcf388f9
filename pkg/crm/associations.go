package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Association categories.
const (
	CategoryHubSpotDefined = "HUBSPOT_DEFINED"
	CategoryUserDefined    = "USER_DEFINED"
)

// ID is an object id that the CRM may encode as a JSON number or string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
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
		return err
	}
	*id = ID(n.String())
	return nil
}

// AssociationType is one structural type or label layered on an edge.
type AssociationType struct {
	Category string `json:"category"`
	TypeID   int    `json:"typeId"`
	Label    string `json:"label,omitempty"`
}

// Association is one edge from the queried object to ToObjectID.
type Association struct {
	ToObjectID       ID                `json:"toObjectId"`
	AssociationTypes []AssociationType `json:"associationTypes"`
}

// Labels returns the non-empty labels on the edge.
func (a Association) Labels() []string {
	var out []string
	for _, t := range a.AssociationTypes {
		if t.Label != "" {
			out = append(out, t.Label)
		}
	}
	return out
}

// HasLabel reports whether the edge carries label (case-insensitive).
func (a Association) HasLabel(label string) bool {
	for _, t := range a.AssociationTypes {
		if t.Label != "" && strings.EqualFold(t.Label, label) {
			return true
		}
	}
	return false
}

// AssociationSpec identifies an association type on write.
type AssociationSpec struct {
	Category string `json:"associationCategory"`
	TypeID   int    `json:"associationTypeId"`
}

func associationsPath(fromType, fromID, toType string, toID ...string) string {
	p := "/crm/v4/objects/" + url.PathEscape(fromType) + "/" + url.PathEscape(fromID) + "/associations/" + url.PathEscape(toType)
	if len(toID) > 0 {
		p += "/" + url.PathEscape(toID[0])
	}
	return p
}

// Associations lists every edge from (fromType, fromID) to objects of toType,
// following the paging cursor.
func (c *Client) Associations(ctx context.Context, fromType, fromID, toType string) ([]Association, error) {
	var all []Association
	q := url.Values{"limit": {"500"}}
	for {
		var page struct {
			Results []Association `json:"results"`
			Paging  *Paging       `json:"paging,omitempty"`
		}
		if err := c.Do(ctx, http.MethodGet, associationsPath(fromType, fromID, toType), q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		next := page.Paging.after()
		if next == "" {
			return all, nil
		}
		q.Set("after", next)
	}
}

// Associate creates the edge (or adds the given types to an existing one).
func (c *Client) Associate(ctx context.Context, fromType, fromID, toType, toID string, specs []AssociationSpec) error {
	return c.Do(ctx, http.MethodPut, associationsPath(fromType, fromID, toType, toID), nil, specs, nil)
}

// RemoveAssociation deletes every association type between the two objects.
func (c *Client) RemoveAssociation(ctx context.Context, fromType, fromID, toType, toID string) error {
	return c.Do(ctx, http.MethodDelete, associationsPath(fromType, fromID, toType, toID), nil, nil, nil)
}

// ArchiveLabels removes only the given labels from an edge, leaving the edge
// and its other types in place.
func (c *Client) ArchiveLabels(ctx context.Context, fromType, fromID, toType, toID string, specs []AssociationSpec) error {
	type objRef struct {
		ID string `json:"id"`
	}
	type input struct {
		From  objRef            `json:"from"`
		To    objRef            `json:"to"`
		Types []AssociationSpec `json:"types"`
	}
	body := struct {
		Inputs []input `json:"inputs"`
	}{Inputs: []input{{From: objRef{ID: fromID}, To: objRef{ID: toID}, Types: specs}}}

	p := "/crm/v4/associations/" + url.PathEscape(fromType) + "/" + url.PathEscape(toType) + "/batch/labels/archive"
	return c.Do(ctx, http.MethodPost, p, nil, body, nil)
}
