package contacts

import (
	"fmt"
	"slices"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

var sortableColumns = []string{"id", "name", "email", "phone", "address", "timezone", "created_at", "updated_at"}

// ListQuery describes the optional filters of a contact listing. Zero values
// disable the matching clause.
type ListQuery struct {
	Name     string
	Email    string
	Timezone string
	SortBy   string
	Order    string
	Start    *time.Time
	End      *time.Time
}

// SortableColumns returns the columns accepted by ListQuery.SortBy.
func SortableColumns() []string {
	return slices.Clone(sortableColumns)
}

// validate normalizes the sort settings in place and resolves the display
// location from the timezone filter.
func (q *ListQuery) validate() (*time.Location, error) {
	details := map[string]string{}

	q.SortBy = strings.ToLower(strings.TrimSpace(q.SortBy))
	q.Order = strings.ToLower(strings.TrimSpace(q.Order))
	if q.SortBy != "" && !slices.Contains(sortableColumns, q.SortBy) {
		details["sort_by"] = fmt.Sprintf("must be one of [%s]", strings.Join(sortableColumns, " "))
	}
	switch q.Order {
	case "":
		if q.SortBy != "" {
			q.Order = OrderAsc
		}
	case OrderAsc, OrderDesc:
		if q.SortBy == "" {
			details["sort_by"] = "is required when order is set"
		}
	default:
		details["order"] = "must be one of [asc desc]"
	}

	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		details["end_date"] = "must not be before start_date"
	}

	loc := time.UTC
	if tz := strings.TrimSpace(q.Timezone); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			details["timezone"] = "must be a valid IANA timezone"
		} else {
			loc = parsed
		}
		q.Timezone = tz
	}

	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid list query").WithDetails(details)
	}
	return loc, nil
}

func (q ListQuery) orderClause() string {
	if q.SortBy == "" {
		return "id ASC"
	}
	// ties fall back to id so pages are stable
	return fmt.Sprintf("%s %s, id ASC", q.SortBy, strings.ToUpper(q.Order))
}
