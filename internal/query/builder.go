// Package query builds the parameterized count and data statements behind the
// confession list endpoint.
package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside int32 for any allowed limit.
	MaxPage = math.MaxInt32/MaxLimit + 1
)

// SortField is the closed set of columns a list may be ordered by.
type SortField string

const (
	SortByCity      SortField = "city"
	SortBySex       SortField = "sex"
	SortByAge       SortField = "age"
	SortByCreatedAt SortField = "created_at"
)

// ParseSortField maps user input onto a SortField. Unknown values fall back to created_at.
func ParseSortField(s string) SortField {
	switch SortField(s) {
	case SortByCity, SortBySex, SortByAge, SortByCreatedAt:
		return SortField(s)
	}
	return SortByCreatedAt
}

type SortOrder string

const (
	Asc  SortOrder = "ASC"
	Desc SortOrder = "DESC"
)

// ParseSortOrder returns Asc only for "asc"; everything else is Desc.
func ParseSortOrder(s string) SortOrder {
	if s == "asc" {
		return Asc
	}
	return Desc
}

// Filter is the conjunction of optional constraints. Zero values mean "not set".
type Filter struct {
	City   string
	Sex    string
	AgeMin *int
	AgeMax *int
	Search string
}

// List is a fully normalized list request.
type List struct {
	Filter Filter
	SortBy SortField
	Order  SortOrder
	Page   int
	Limit  int
}

// Params holds raw, unvalidated list parameters as they arrive from a query string.
type Params struct {
	Page      string
	Limit     string
	City      string
	Sex       string
	AgeMin    string
	AgeMax    string
	Search    string
	SortBy    string
	SortOrder string
}

// Normalize turns raw parameters into a List. Malformed or non-positive page and
// limit values fall back to defaults and limit is clamped to MaxLimit.
// Malformed age bounds are ignored.
func Normalize(p Params) List {
	l := List{
		Filter: Filter{
			City:   strings.TrimSpace(p.City),
			Sex:    strings.TrimSpace(p.Sex),
			AgeMin: parseOptionalInt(p.AgeMin),
			AgeMax: parseOptionalInt(p.AgeMax),
			Search: strings.TrimSpace(p.Search),
		},
		SortBy: ParseSortField(p.SortBy),
		Order:  ParseSortOrder(p.SortOrder),
		Page:   parsePositive(p.Page, DefaultPage),
		Limit:  parsePositive(p.Limit, DefaultLimit),
	}
	if l.Limit > MaxLimit {
		l.Limit = MaxLimit
	}
	if l.Page > MaxPage {
		l.Page = MaxPage
	}
	return l
}

func (l List) Offset() int {
	return (l.Page - 1) * l.Limit
}

// TotalPages is ceil(total / limit).
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// Statement is SQL text plus its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

const selectColumns = "id, city, sex, age, COALESCE(description, ''), audio_path, created_at"

// Build returns the count statement and the data statement for l. Both share the
// same predicate; only the sort field and order, which are enumeration
// constants, are interpolated.
func Build(l List) (count Statement, data Statement) {
	where, args := buildWhere(l.Filter)

	count = Statement{
		SQL:  "SELECT COUNT(*) FROM confessions" + where,
		Args: args,
	}

	n := len(args) + 1
	dataArgs := make([]any, 0, len(args)+2)
	dataArgs = append(dataArgs, args...)
	dataArgs = append(dataArgs, l.Limit, l.Offset())

	data = Statement{
		SQL: fmt.Sprintf("SELECT %s FROM confessions%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
			selectColumns, where, sortColumn(l.SortBy), sortDirection(l.Order), sortDirection(l.Order), n, n+1),
		Args: dataArgs,
	}
	return count, data
}

func buildWhere(f Filter) (string, []any) {
	var conditions []string
	var args []any
	argCounter := 1

	if f.City != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(city) LIKE LOWER($%d)", argCounter))
		args = append(args, containsPattern(f.City))
		argCounter++
	}
	if f.Sex != "" {
		conditions = append(conditions, fmt.Sprintf("sex = $%d", argCounter))
		args = append(args, f.Sex)
		argCounter++
	}
	if f.AgeMin != nil {
		conditions = append(conditions, fmt.Sprintf("age >= $%d", argCounter))
		args = append(args, *f.AgeMin)
		argCounter++
	}
	if f.AgeMax != nil {
		conditions = append(conditions, fmt.Sprintf("age <= $%d", argCounter))
		args = append(args, *f.AgeMax)
		argCounter++
	}
	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(description) LIKE LOWER($%d) OR LOWER(city) LIKE LOWER($%d))", argCounter, argCounter))
		args = append(args, containsPattern(f.Search))
		argCounter++
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// sortColumn and sortDirection re-check the enumerations so that a value built
// outside the parse functions can never reach the SQL text.
func sortColumn(f SortField) string {
	return string(ParseSortField(string(f)))
}

func sortDirection(o SortOrder) string {
	if o == Asc {
		return string(Asc)
	}
	return string(Desc)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern wraps s for a substring LIKE, escaping LIKE metacharacters
// with the default backslash escape.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// parsePositive saturates values too large for an int instead of
// falling back to def.
func parsePositive(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}

// parseOptionalInt saturates at the int4 bounds of the age column, so an
// oversized filter still binds and keeps its meaning.
func parseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n64, err := strconv.ParseInt(s, 10, 32)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil
	}
	n := int(n64)
	return &n
}

// Key is a canonical representation of l, stable across equivalent raw inputs.
func (l List) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "p=%d&l=%d&s=%s&o=%s", l.Page, l.Limit, l.SortBy, l.Order)
	if l.Filter.City != "" {
		fmt.Fprintf(&b, "&city=%q", l.Filter.City)
	}
	if l.Filter.Sex != "" {
		fmt.Fprintf(&b, "&sex=%q", l.Filter.Sex)
	}
	if l.Filter.AgeMin != nil {
		fmt.Fprintf(&b, "&amin=%d", *l.Filter.AgeMin)
	}
	if l.Filter.AgeMax != nil {
		fmt.Fprintf(&b, "&amax=%d", *l.Filter.AgeMax)
	}
	if l.Filter.Search != "" {
		fmt.Fprintf(&b, "&q=%q", l.Filter.Search)
	}
	return b.String()
}
