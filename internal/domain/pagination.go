package domain

import "strings"

var bookingSortColumns = map[string]string{
	"createdAt": "b.created_at",
	"startsAt":  "s.starts_at",
	"total":     "b.total_price",
}

type Pagination struct {
	Page     int
	PageSize int
	Sort     string
}

// SortColumn maps the public sort key onto a column, falling back to creation time.
func (p Pagination) SortColumn() string {
	column, ok := bookingSortColumns[strings.TrimPrefix(p.Sort, "-")]
	if !ok {
		return bookingSortColumns["createdAt"]
	}

	return column
}

func (p Pagination) SortDirection() string {
	if p.Sort == "" || strings.HasPrefix(p.Sort, "-") {
		return "DESC"
	}

	return "ASC"
}

func ValidBookingSort(sort string) bool {
	_, ok := bookingSortColumns[strings.TrimPrefix(sort, "-")]
	return ok
}

func (p Pagination) Limit() int {
	return p.PageSize
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type Metadata struct {
	CurrentPage  int
	FirstPage    int
	LastPage     int
	PageSize     int
	TotalRecords int
}

func NewMetadata(totalRecords, page, pageSize int) *Metadata {
	if totalRecords == 0 {
		return &Metadata{}
	}

	return &Metadata{
		CurrentPage:  page,
		FirstPage:    1,
		LastPage:     (totalRecords + pageSize - 1) / pageSize,
		PageSize:     pageSize,
		TotalRecords: totalRecords,
	}
}
