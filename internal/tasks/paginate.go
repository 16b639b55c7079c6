package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// PageFetcher requests one page of a remote listing. The empty cursor requests the first page.
type PageFetcher[T any] func(ctx context.Context, cursor string) (*services.Page[T], error)

// Drain follows cursors until the listing is exhausted and returns every item in service order.
//
// Any page error discards what was collected so far.
func Drain[T any](ctx context.Context, fetch PageFetcher[T]) ([]T, error) {
	items := []T{}
	seen := map[string]bool{}
	cursor := ""

	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrCatalogFetch, err)
		}
		if page == nil {
			return nil, fmt.Errorf("%w: empty page response", shared.ErrCatalogFetch)
		}

		items = append(items, page.Items...)
		if page.Next == "" {
			return items, nil
		}

		if seen[page.Next] {
			return nil, fmt.Errorf("%w: cursor repeated: %s", shared.ErrCatalogFetch, page.Next)
		}
		seen[page.Next] = true
		cursor = page.Next
	}
}
