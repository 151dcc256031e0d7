package kalshi

import (
	"context"
	"fmt"
	"net/url"

	json "github.com/goccy/go-json"
)

// Page is one page of a cursor-paginated listing. An empty Cursor means
// the listing is exhausted.
type Page[T any] struct {
	Items  []T
	Cursor string
}

// HasMore reports whether another page can be fetched.
func (p Page[T]) HasMore() bool { return p.Cursor != "" }

// PaginatedGet fetches items from a cursor-paginated list endpoint.
// Every list endpoint returns its items under an endpoint-specific key
// plus an opaque cursor; the cursor is passed back verbatim and its
// contents are never interpreted.
// Params with empty values are dropped. With fetchAll true it follows
// cursors until the terminal (empty-cursor) page; otherwise it returns
// the first page only. Items are returned in arrival order, undeduplicated.
func (c *Client) PaginatedGet(ctx context.Context, path, responseKey string, params url.Values, fetchAll bool) ([]json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	var all []json.RawMessage
	for {
		items, cursor, err := c.pageGet(ctx, path, responseKey, params)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if !fetchAll || cursor == "" {
			return all, nil
		}
		params.Set("cursor", cursor)
	}
}

// pageGet fetches a single page and returns its items and next cursor.
func (c *Client) pageGet(ctx context.Context, path, responseKey string, params url.Values) ([]json.RawMessage, string, error) {
	var raw map[string]json.RawMessage
	if err := c.Get(ctx, buildEndpoint(path, params), &raw); err != nil {
		return nil, "", err
	}

	var cursor string
	if cv, ok := raw["cursor"]; ok {
		if err := json.Unmarshal(cv, &cursor); err != nil {
			return nil, "", fmt.Errorf("kalshi: malformed cursor in %s response: %w", path, err)
		}
	}

	var items []json.RawMessage
	if iv, ok := raw[responseKey]; ok && string(iv) != "null" {
		if err := json.Unmarshal(iv, &items); err != nil {
			return nil, "", fmt.Errorf("kalshi: malformed %q array in %s response: %w", responseKey, path, err)
		}
	}
	return items, cursor, nil
}

// decodeItems unmarshals raw page items into their typed form.
func decodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// listAll is the generic fetch-and-decode used by the *All accessors.
func listAll[T any](ctx context.Context, c *Client, path, responseKey string, params url.Values, fetchAll bool) ([]T, error) {
	raw, err := c.PaginatedGet(ctx, path, responseKey, params, fetchAll)
	if err != nil {
		return nil, err
	}
	return decodeItems[T](raw)
}

// listPage fetches a single page and decodes it into a Page container.
func listPage[T any](ctx context.Context, c *Client, path, responseKey string, params url.Values) (Page[T], error) {
	raw, cursor, err := c.pageGet(ctx, path, responseKey, params)
	if err != nil {
		return Page[T]{}, err
	}
	items, err := decodeItems[T](raw)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Cursor: cursor}, nil
}
