// Package pager enumerates cursor-paginated remote collections.
package pager

import (
	"context"
	"fmt"
	"iter"
)

// MaxPageSize is the largest page the directory services accept.
const MaxPageSize int32 = 60

// Page is one page of a listing. An empty NextCursor ends the listing.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// FetchFunc retrieves the page following cursor. The first call receives an
// empty cursor.
type FetchFunc[T any] func(ctx context.Context, pageSize int32, cursor string) (Page[T], error)

// Lister follows continuation cursors until the remote stops returning one.
type Lister[T any] struct {
	fetch    FetchFunc[T]
	pageSize int32
}

// ValidatePageSize resolves a configured page size. Zero selects MaxPageSize;
// anything above MaxPageSize is rejected rather than truncated.
func ValidatePageSize(pageSize int32) (int32, error) {
	switch {
	case pageSize == 0:
		return MaxPageSize, nil
	case pageSize < 0:
		return 0, fmt.Errorf("page size must be positive, got %d", pageSize)
	case pageSize > MaxPageSize:
		return 0, fmt.Errorf("page size %d exceeds the directory maximum of %d", pageSize, MaxPageSize)
	default:
		return pageSize, nil
	}
}

// New creates a Lister. See ValidatePageSize for pageSize semantics.
func New[T any](fetch FetchFunc[T], pageSize int32) (*Lister[T], error) {
	if fetch == nil {
		return nil, fmt.Errorf("fetch function cannot be nil")
	}

	size, err := ValidatePageSize(pageSize)
	if err != nil {
		return nil, err
	}

	return &Lister[T]{fetch: fetch, pageSize: size}, nil
}

// PageSize returns the page size requested on every call.
func (l *Lister[T]) PageSize() int32 {
	return l.pageSize
}

// All returns a lazy sequence over every record. Each call starts a fresh
// listing. A page error is yielded once and ends the sequence.
func (l *Lister[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		cursor := ""
		for {
			page, err := l.fetch(ctx, l.pageSize, cursor)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}

			if page.NextCursor == "" {
				return
			}
			cursor = page.NextCursor
		}
	}
}

// Collect drains the listing into a slice. Records gathered before a page
// error are discarded.
func (l *Lister[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for item, err := range l.All(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
