package employee

import "strings"

type SortDirection string

const (
	Ascending  SortDirection = "ascending"
	Descending SortDirection = "descending"
)

// DefaultPageSize is the number of rows per page when none is requested.
const DefaultPageSize = 5

// Sortable keys, named after the persisted JSON keys.
const (
	SortByEmployeeID  = "employeeId"
	SortByName        = "name"
	SortByEmail       = "email"
	SortByMobile      = "mobile"
	SortByDesignation = "designation"
	SortByGender      = "gender"
	SortByCreateDate  = "createDate"
)

var SortKeys = []string{
	SortByEmployeeID,
	SortByName,
	SortByEmail,
	SortByMobile,
	SortByDesignation,
	SortByGender,
	SortByCreateDate,
}

func IsSortKey(key string) bool {
	for _, k := range SortKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ParseSortDirection accepts asc/ascending and desc/descending, case-insensitively.
// An empty string means ascending.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", ErrInvalidSortDirection
}

// Query is the ephemeral view state: search, sort and page.
type Query struct {
	Search    string
	SortKey   string
	Direction SortDirection
	Page      int
	PageSize  int
}

// Page is one derived page of the collection.
type Page struct {
	Rows       []Employee
	TotalCount int
	PageCount  int
}
