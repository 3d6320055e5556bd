package paginator

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tesserae/tess-jobs/internal/store"
)

const (
	DefaultSortBy     = "score"
	DefaultSortOrder  = store.SortDescending
	DefaultPerPage    = 100
	DefaultPageNumber = 0

	SortByParam     = "sort_by"
	SortOrderParam  = "sort_order"
	PerPageParam    = "per_page"
	PageNumberParam = "page_number"
)

// RawOptions holds the page options as received. An empty field is absent.
type RawOptions struct {
	SortBy     string
	SortOrder  string
	PerPage    string
	PageNumber string
}

func FromQuery(q url.Values) RawOptions {
	return RawOptions{
		SortBy:     strings.TrimSpace(q.Get(SortByParam)),
		SortOrder:  strings.TrimSpace(q.Get(SortOrderParam)),
		PerPage:    strings.TrimSpace(q.Get(PerPageParam)),
		PageNumber: strings.TrimSpace(q.Get(PageNumberParam)),
	}
}

// Options is a validated window over the result rows of a job. PageNumber is 0-indexed.
type Options struct {
	SortBy     string          `query:"sort_by" validate:"oneof=score source_tag target_tag matched_features"`
	SortOrder  store.SortOrder `query:"sort_order" validate:"oneof=ascending descending"`
	PerPage    int             `query:"per_page" validate:"gte=1,ltefield=MaxPerPage"`
	PageNumber int             `query:"page_number" validate:"gte=0"`
	MaxPerPage int             `query:"-" json:"-"`
}

func Default() Options {
	return Options{
		SortBy:     DefaultSortBy,
		SortOrder:  DefaultSortOrder,
		PerPage:    DefaultPerPage,
		PageNumber: DefaultPageNumber,
	}
}

func (o Options) Offset() int {
	return o.PerPage * o.PageNumber
}

func (o Options) Limit() int {
	return o.PerPage
}

func (o Options) Window() store.Window {
	return store.Window{
		SortBy: o.SortBy,
		Order:  o.SortOrder,
		Offset: o.Offset(),
		Limit:  o.Limit(),
	}
}

// Query renders the options as a query string, without the leading '?'.
func (o Options) Query() string {
	return fmt.Sprintf("%s=%s&%s=%s&%s=%d&%s=%d",
		SortByParam, url.QueryEscape(o.SortBy),
		SortOrderParam, url.QueryEscape(string(o.SortOrder)),
		PerPageParam, o.PerPage,
		PageNumberParam, o.PageNumber,
	)
}

// ErrInvalidPageOptions names every offending option with the reason it was rejected.
type ErrInvalidPageOptions struct {
	Fields map[string]string
}

func (e *ErrInvalidPageOptions) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("invalid page options: %s", strings.Join(parts, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Parse defaults every absent option and validates each one independently. maxPerPage
// bounds per_page; a value <= 0 leaves it unbounded.
func Parse(raw RawOptions, maxPerPage int) (Options, error) {
	opts := Default()
	fields := map[string]string{}

	if raw.SortBy != "" {
		opts.SortBy = strings.ToLower(raw.SortBy)
	}
	if raw.SortOrder != "" {
		opts.SortOrder = store.SortOrder(strings.ToLower(raw.SortOrder))
	}
	if raw.PerPage != "" {
		n, err := strconv.Atoi(raw.PerPage)
		if err != nil {
			fields[PerPageParam] = fmt.Sprintf("%q is not an integer", raw.PerPage)
		} else {
			opts.PerPage = n
		}
	}
	if raw.PageNumber != "" {
		n, err := strconv.Atoi(raw.PageNumber)
		if err != nil {
			fields[PageNumberParam] = fmt.Sprintf("%q is not an integer", raw.PageNumber)
		} else {
			opts.PageNumber = n
		}
	}

	opts.MaxPerPage = maxPerPage
	if maxPerPage <= 0 {
		opts.MaxPerPage = math.MaxInt
	}

	if err := validate.Struct(opts); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return Options{}, err
		}
		for _, fe := range verrs {
			if _, found := fields[fe.Field()]; found {
				continue
			}
			fields[fe.Field()] = describe(fe, maxPerPage)
		}
	}

	_, badPerPage := fields[PerPageParam]
	_, badPageNumber := fields[PageNumberParam]
	if !badPerPage && !badPageNumber && opts.PerPage > 0 {
		// the offset of the page must fit in an int
		if last := math.MaxInt / opts.PerPage; opts.PageNumber > last {
			fields[PageNumberParam] = fmt.Sprintf("must be at most %d for %s %d", last, PerPageParam, opts.PerPage)
		}
	}

	if len(fields) > 0 {
		return Options{}, &ErrInvalidPageOptions{Fields: fields}
	}
	return opts, nil
}

func describe(fe validator.FieldError, maxPerPage int) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%v is not one of [%s]", fe.Value(), fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "ltefield":
		return fmt.Sprintf("must be at most %d", maxPerPage)
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
