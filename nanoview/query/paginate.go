package query

import (
	"fmt"

	"github.com/arthur-debert/nanoview/types"
)

// validatePage rejects pages no caller should build. Out-of-range indexes
// are fine; they produce an empty page.
func validatePage(page types.Page) error {
	if page.Size < 0 {
		return fmt.Errorf("%w: page size must not be negative, got %d", types.ErrInvalidPage, page.Size)
	}
	if page.Size > 0 && page.Index < 1 {
		return fmt.Errorf("%w: page index is 1-based, got %d", types.ErrInvalidPage, page.Index)
	}
	return nil
}

// paginate slices visible into [(index-1)*size, index*size).
// A zero size returns a single page holding everything.
func paginate(visible []types.Record, page types.Page) ([]types.Record, types.PageInfo) {
	total := len(visible)

	if page.Size == 0 {
		return append(make([]types.Record, 0, total), visible...), types.PageInfo{
			Index:      1,
			Size:       0,
			TotalItems: total,
			TotalPages: 1,
		}
	}

	info := types.PageInfo{
		Index:      page.Index,
		Size:       page.Size,
		TotalItems: total,
		TotalPages: total / page.Size,
	}
	if total%page.Size != 0 {
		info.TotalPages++
	}

	if page.Index > info.TotalPages {
		return []types.Record{}, info
	}
	start := (page.Index - 1) * page.Size
	end := total
	if total-start > page.Size {
		end = start + page.Size
	}

	// Copy so appending to the page can't overwrite Visible
	return append(make([]types.Record, 0, end-start), visible[start:end]...), info
}
