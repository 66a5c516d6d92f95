package employee

import (
	"cmp"
	"slices"
	"strings"

	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
)

// Derive filters, sorts and paginates records for display. records is never modified.
func Derive(records []employee.Employee, q employee.Query) (employee.Page, error) {
	rows, err := FilterAndSort(records, q)
	if err != nil {
		return employee.Page{}, err
	}

	size := q.PageSize
	if size <= 0 {
		size = employee.DefaultPageSize
	}

	return employee.Page{
		Rows:       Paginate(rows, q.Page, size),
		TotalCount: len(rows),
		PageCount:  PageCount(len(rows), size),
	}, nil
}

// FilterAndSort runs the first two stages of Derive and returns the full, unpaginated view.
func FilterAndSort(records []employee.Employee, q employee.Query) ([]employee.Employee, error) {
	rows := Filter(records, q.Search)
	if err := Sort(rows, q.SortKey, q.Direction); err != nil {
		return nil, err
	}
	return rows, nil
}

// Filter keeps records whose name, email or designation contains search, ignoring case.
// An empty search keeps everything. The result is a new slice.
func Filter(records []employee.Employee, search string) []employee.Employee {
	out := make([]employee.Employee, 0, len(records))
	if search == "" {
		return append(out, records...)
	}

	needle := strings.ToLower(search)
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), needle) ||
			strings.Contains(strings.ToLower(r.Email), needle) ||
			strings.Contains(strings.ToLower(r.Designation), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Sort orders rows in place. It is stable in both directions: descending only negates
// the comparison, so equal keys keep their incoming order. An empty key is a no-op.
func Sort(rows []employee.Employee, key string, dir employee.SortDirection) error {
	if key == "" {
		return nil
	}

	compare, err := comparator(key)
	if err != nil {
		return err
	}
	if dir == employee.Descending {
		asc := compare
		compare = func(a, b employee.Employee) int { return -asc(a, b) }
	}

	slices.SortStableFunc(rows, compare)
	return nil
}

func comparator(key string) (func(a, b employee.Employee) int, error) {
	var field func(employee.Employee) string
	switch key {
	case employee.SortByEmployeeID:
		return func(a, b employee.Employee) int { return cmp.Compare(a.EmployeeID, b.EmployeeID) }, nil
	case employee.SortByName:
		field = func(e employee.Employee) string { return e.Name }
	case employee.SortByEmail:
		field = func(e employee.Employee) string { return e.Email }
	case employee.SortByMobile:
		field = func(e employee.Employee) string { return e.Mobile }
	case employee.SortByDesignation:
		field = func(e employee.Employee) string { return e.Designation }
	case employee.SortByGender:
		field = func(e employee.Employee) string { return e.Gender }
	case employee.SortByCreateDate:
		field = func(e employee.Employee) string { return e.CreateDate }
	default:
		return nil, employee.ErrInvalidSortKey
	}
	return func(a, b employee.Employee) int { return strings.Compare(field(a), field(b)) }, nil
}

// Paginate returns rows[(page-1)*size : page*size]. Pages below 1 or past the end are empty.
func Paginate(rows []employee.Employee, page, size int) []employee.Employee {
	if page < 1 || size <= 0 {
		return []employee.Employee{}
	}
	if page > PageCount(len(rows), size) {
		return []employee.Employee{}
	}
	start := (page - 1) * size
	end := min(start+size, len(rows))
	return rows[start:end]
}

// PageCount is ceil(total/size).
func PageCount(total, size int) int {
	if size <= 0 {
		size = employee.DefaultPageSize
	}
	return (total + size - 1) / size
}

// PrevPage never goes below 1.
func PrevPage(page int) int {
	return max(1, page-1)
}

// NextPage advances only while a later page holds rows, i.e. page*size < total.
func NextPage(page, total, size int) int {
	if page < PageCount(total, size) {
		return page + 1
	}
	return page
}

// ToggleSort mirrors a column header click: the same key while ascending flips to
// descending, anything else sorts the clicked key ascending.
func ToggleSort(currentKey string, currentDir employee.SortDirection, key string) (string, employee.SortDirection) {
	if currentKey == key && currentDir != employee.Descending {
		return key, employee.Descending
	}
	return key, employee.Ascending
}
