package assembler

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Page is one slice of a longer list.
type Page[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate returns the 1-based page of items. A page below 1 becomes 1 and a
// size outside [1, MaxPageSize] becomes DefaultPageSize. A page past the end
// has no data but still reports the totals.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	total := len(items)
	p := Page[T]{
		Data:       []T{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}

	start := (page - 1) * size
	if start < total {
		end := start + size
		if end > total {
			end = total
		}
		p.Data = items[start:end]
	}
	return p
}
