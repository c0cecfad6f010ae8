package pagination

// PageMeta describes one page of an offset-paginated listing.
type PageMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// ClampPage normalizes a client-supplied page number, substituting 1 for
// zero or negative values.
func ClampPage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// SlicePage returns the requested page of items plus its metadata.
func SlicePage[T any](items []T, page, limit int) ([]T, PageMeta) {
	page = ClampPage(page)
	limit = ClampLimit(limit)

	total := len(items)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start >= total {
		return nil, PageMeta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], PageMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    end < total,
	}
}
