package table

import "strings"

// Model holds a slice of rows plus the column extractor used for text
// search. Operations return new Models so a page can keep the unfiltered
// data while rendering a searched/paginated view.
type Model[T any] struct {
	rows    []T
	columns func(T) []string
}

// Page is one display-ready slice of rows.
type Page[T any] struct {
	Items      []T `json:"items"`
	Number     int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalRows  int `json:"total_rows"`
}

// New builds a Model. columns extracts the searchable text cells of a row;
// nil disables text search (Search becomes a no-op).
func New[T any](rows []T, columns func(T) []string) Model[T] {
	return Model[T]{rows: rows, columns: columns}
}

// Rows returns the current row set.
func (m Model[T]) Rows() []T { return m.rows }

// Search keeps rows with at least one column containing query,
// case-insensitively. An empty query keeps everything.
func (m Model[T]) Search(query string) Model[T] {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || m.columns == nil {
		return m
	}
	var kept []T
	for _, r := range m.rows {
		for _, col := range m.columns(r) {
			if strings.Contains(strings.ToLower(col), query) {
				kept = append(kept, r)
				break
			}
		}
	}
	return Model[T]{rows: kept, columns: m.columns}
}

// Filter keeps rows matching pred.
func (m Model[T]) Filter(pred func(T) bool) Model[T] {
	var kept []T
	for _, r := range m.rows {
		if pred(r) {
			kept = append(kept, r)
		}
	}
	return Model[T]{rows: kept, columns: m.columns}
}

// Paginate slices the rows into the requested page. The page number is
// clamped to [1, totalPages] so an out-of-range request after a narrowing
// search still renders the nearest valid page.
func (m Model[T]) Paginate(page, perPage int) Page[T] {
	if perPage < 1 {
		perPage = 10
	}
	total := len(m.rows)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page[T]{
		Items:      m.rows[start:end],
		Number:     page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalRows:  total,
	}
}
