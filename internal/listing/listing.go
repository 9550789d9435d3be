// Package listing filters, sorts and pages in-memory record lists for the
// dashboard tables. It knows nothing about payments or subscriptions; callers
// describe their records through a Spec.
package listing

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SearchAll selects every searchable field.
const SearchAll = "all"

// ErrUnknownField is returned when the search field selector names no field.
var ErrUnknownField = errors.New("unknown search field")

// Field is a named searchable text projection of T.
type Field[T any] struct {
	Name  string
	Value func(T) string
}

// Spec describes how to search and date records of type T.
type Spec[T any] struct {
	Fields []Field[T]
	// DateOf returns the date used for range filtering and newest-first
	// ordering. A nil DateOf keeps input order and ignores date ranges.
	DateOf func(T) time.Time
}

// Predicate is a categorical filter; records for which it returns false are dropped.
type Predicate[T any] func(T) bool

// Params is one table query.
type Params struct {
	Search      string
	SearchField string
	Range       DateRange
	Page        int
	PageSize    int
}

// Result is one page of a filtered, sorted list.
type Result[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
}

// HasMore reports whether pages follow this one.
func (r Result[T]) HasMore() bool { return r.Page < r.TotalPages }

// Apply filters items by search text, date range and predicates, sorts the
// survivors newest first and returns the requested page. items is not
// modified.
func Apply[T any](items []T, spec Spec[T], p Params, preds ...Predicate[T]) (Result[T], error) {
	match, err := spec.matcher(p.Search, p.SearchField)
	if err != nil {
		return Result[T]{}, err
	}

	filtered := make([]T, 0, len(items))
	for _, it := range items {
		if !match(it) {
			continue
		}
		if spec.DateOf != nil && !p.Range.Contains(spec.DateOf(it)) {
			continue
		}
		if !all(it, preds) {
			continue
		}
		filtered = append(filtered, it)
	}

	if spec.DateOf != nil {
		sort.SliceStable(filtered, func(i, j int) bool {
			return spec.DateOf(filtered[i]).After(spec.DateOf(filtered[j]))
		})
	}

	return Paginate(filtered, p.Page, p.PageSize), nil
}

func all[T any](it T, preds []Predicate[T]) bool {
	for _, pred := range preds {
		if pred != nil && !pred(it) {
			return false
		}
	}
	return true
}

func (s Spec[T]) matcher(search, field string) (func(T) bool, error) {
	fields := s.Fields
	if field != "" && field != SearchAll {
		fields = nil
		for _, f := range s.Fields {
			if f.Name == field {
				fields = []Field[T]{f}
				break
			}
		}
		if fields == nil {
			return nil, ErrUnknownField
		}
	}

	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return func(T) bool { return true }, nil
	}
	return func(it T) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f.Value(it)), q) {
				return true
			}
		}
		return false
	}, nil
}

// ClampPageSize returns def when size is unset and caps it at max.
func ClampPageSize(size, def, max int) int {
	if def < 1 {
		def = DefaultPageSize
	}
	if max < 1 {
		max = MaxPageSize
	}
	if size < 1 {
		size = def
	}
	if size > max {
		size = max
	}
	return size
}

// Paginate returns page of items. Pages count from 1; a page past the end
// yields no items. Total pages is never less than 1.
func Paginate[T any](items []T, page, pageSize int) Result[T] {
	pageSize = ClampPageSize(pageSize, DefaultPageSize, MaxPageSize)
	if page < 1 {
		page = 1
	}

	total := len(items)
	start := (page - 1) * pageSize
	if start >= total {
		return Page([]T{}, total, page, pageSize)
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return Page(items[start:end], total, page, pageSize)
}

// Page wraps items that were already cut to one page, for example by a
// LIMIT/OFFSET query, out of total matching records.
func Page[T any](items []T, total, page, pageSize int) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:      items,
		TotalCount: total,
		TotalPages: TotalPages(total, pageSize),
		Page:       page,
		PageSize:   pageSize,
	}
}

// TotalPages is ceil(total/pageSize), never less than 1.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	n := (total + pageSize - 1) / pageSize
	if n < 1 {
		return 1
	}
	return n
}
