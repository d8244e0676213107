package github

import "context"

// DefaultPageSize is the page size used when none is configured; 100 is the
// GitHub API maximum.
const DefaultPageSize = 100

// PageFunc fetches one page of records. Pages are 1-based.
type PageFunc[T any] func(ctx context.Context, page, perPage int) ([]T, error)

// FetchAllPages walks a paginated endpoint and materializes the full result.
// Walking stops on the first empty page, on a short page (fewer records than
// perPage, meaning the last page was reached without issuing an extra
// request), or once maxPages pages have been fetched. maxPages <= 0 means
// unbounded; callers use it purely to cap API quota usage, not for
// correctness.
func FetchAllPages[T any](ctx context.Context, perPage, maxPages int, fetch PageFunc[T]) ([]T, error) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}

	var all []T
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		batch, err := fetch(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}
	return all, nil
}
