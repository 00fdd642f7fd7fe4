package models

// PageView is a filtered, paged projection of the cached directory
type PageView struct {
	Items      []User `json:"items"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	From       int    `json:"from"`
	To         int    `json:"to"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
}
