package dto

// Pagination describes the page returned by a list endpoint. Pages start at 1.
type Pagination struct {
	Total      uint64 `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages uint64 `json:"total_pages"`
}

// NewPagination computes the page count for a total
func NewPagination(total uint64, page, limit int) Pagination {
	var totalPages uint64
	if limit > 0 {
		totalPages = (total + uint64(limit) - 1) / uint64(limit) //nolint:gosec,G115
	}
	return Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
