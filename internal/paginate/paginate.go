// Package paginate computes page boundaries over a result list.
package paginate

// All as a page size puts every item on one page.
const All = 0

// Page describes one page of a list of Total items.
type Page struct {
	Number     int `json:"page"`
	Size       int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
	Start      int `json:"-"`
	End        int `json:"-"`
}

// Meta clamps page into [1, TotalPages] and returns the half-open item
// range [Start, End) it covers. A size of All (or any non-positive size)
// means a single page holding everything.
func Meta(page, size, total int) Page {
	if total < 0 {
		total = 0
	}
	per := size
	if per <= 0 {
		per = max(total, 1)
	}
	pages := max(1, (total+per-1)/per)
	page = min(max(page, 1), pages)

	start := min((page-1)*per, total)
	end := min(start+per, total)
	return Page{
		Number:     page,
		Size:       max(size, All),
		TotalPages: pages,
		Total:      total,
		Start:      start,
		End:        end,
	}
}

// Slice returns the items of p, assuming p was computed for items.
func Slice[T any](items []T, p Page) []T {
	if p.Start >= len(items) {
		return items[:0:0]
	}
	return items[p.Start:min(p.End, len(items))]
}
