package views

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit within int for any accepted limit.
	MaxPage = math.MaxInt32 / MaxLimit
)

// sortColumns maps accepted sortBy values to SQL columns of the videos table.
var sortColumns = map[string]string{
	"createdAt": "v.created_at",
	"updatedAt": "v.updated_at",
	"title":     "v.title",
	"duration":  "v.duration",
}

// Page is a 1-based skip/limit window.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// FeedQuery is the validated form of the video listing parameters.
type FeedQuery struct {
	Page
	Search   string
	SortBy   string
	SortDesc bool
	OwnerID  string
}

// OrderBy returns the ORDER BY expression for the query. SortBy is always a
// key of the allowlist, so the result is safe to interpolate.
func (q FeedQuery) OrderBy() string {
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns["createdAt"]
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	return column + " " + direction + ", v.id " + direction
}

// ParsePage reads page and limit, applying defaults.
func ParsePage(values url.Values) (Page, error) {
	page, err := positiveInt(values.Get("page"), DefaultPage, "page")
	if err != nil {
		return Page{}, err
	}
	limit, err := positiveInt(values.Get("limit"), DefaultLimit, "limit")
	if err != nil {
		return Page{}, err
	}
	if page > MaxPage {
		return Page{}, apierror.Validation("page must be at most " + strconv.Itoa(MaxPage))
	}
	if limit > MaxLimit {
		return Page{}, apierror.Validation("limit must be at most 100")
	}
	return Page{Page: page, Limit: limit}, nil
}

// ParseFeedQuery reads the video listing parameters: page, limit, query,
// sortBy, sortType and userId.
func ParseFeedQuery(values url.Values) (FeedQuery, error) {
	page, err := ParsePage(values)
	if err != nil {
		return FeedQuery{}, err
	}

	q := FeedQuery{
		Page:     page,
		Search:   strings.TrimSpace(values.Get("query")),
		SortBy:   "createdAt",
		SortDesc: true,
	}

	if sortBy := strings.TrimSpace(values.Get("sortBy")); sortBy != "" {
		if _, ok := sortColumns[sortBy]; !ok {
			return FeedQuery{}, apierror.Validation("sortBy must be one of: createdAt, updatedAt, title, duration")
		}
		q.SortBy = sortBy
	}

	switch strings.ToLower(strings.TrimSpace(values.Get("sortType"))) {
	case "", "desc":
		q.SortDesc = true
	case "asc":
		q.SortDesc = false
	default:
		return FeedQuery{}, apierror.Validation("sortType must be asc or desc")
	}

	if owner := strings.TrimSpace(values.Get("userId")); owner != "" {
		if err := validation.Var("userId", owner, "uuid"); err != nil {
			return FeedQuery{}, err
		}
		q.OwnerID = owner
	}

	return q, nil
}

// LikePattern builds a case-insensitive substring pattern, escaping LIKE
// metacharacters in s.
func LikePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(s) + "%"
}

func positiveInt(raw string, fallback int, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apierror.Validation(name + " must be a positive integer")
	}
	return n, nil
}
