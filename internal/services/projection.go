package services

import (
	"strings"

	"github.com/akumi07/RoleMaster21/internal/models"
)

const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

// Project filters records by a case-insensitive substring of name or email
// and returns the requested page. The page is clamped into range and
// records is never modified.
func Project(records []models.User, query string, page, pageSize int) models.PageView {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	needle := strings.ToLower(strings.TrimSpace(query))

	filtered := make([]models.User, 0, len(records))
	for _, r := range records {
		if needle == "" ||
			strings.Contains(strings.ToLower(r.Name), needle) ||
			strings.Contains(strings.ToLower(r.Email), needle) {
			filtered = append(filtered, r)
		}
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	lastPage := totalPages
	if lastPage < 1 {
		lastPage = 1
	}
	if page < 1 {
		page = 1
	}
	if page > lastPage {
		page = lastPage
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	view := models.PageView{
		Items:      filtered[start:end],
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	if end > start {
		view.From = start + 1
		view.To = end
	}

	return view
}
