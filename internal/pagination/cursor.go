package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	cursorPrefix = "after|"
)

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
	ErrStaleCursor   = errors.New("cursor refers to an item no longer listed")
)

// EncodeCursor creates a base64-encoded cursor pointing after lastID
func EncodeCursor(lastID string) string {
	if lastID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(cursorPrefix + lastID))
}

// DecodeCursor returns the id the cursor points after. An empty cursor
// decodes to an empty id.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", ErrInvalidCursor
	}

	id, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok || id == "" {
		return "", ErrInvalidCursor
	}
	return id, nil
}

// ClampLimit bounds a requested page size to [1, MaxLimit]
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Paginate slices an ordered list into the page following cursor
func Paginate[T any](items []T, cursor string, limit int, getID func(T) string) (*PageResult[T], error) {
	afterID, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = ClampLimit(limit)

	start := 0
	if afterID != "" {
		start = -1
		for i, item := range items {
			if getID(item) == afterID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, ErrStaleCursor
		}
	}

	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	page := &PageResult[T]{
		Items:   items[start:end],
		HasMore: end < len(items),
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	if page.HasMore && end > start {
		page.Cursor = EncodeCursor(getID(items[end-1]))
	}
	return page, nil
}
