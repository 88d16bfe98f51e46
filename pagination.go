package gqlgremlin

import (
	"context"
	"fmt"
	"math"

	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// Page is one page of a vertex list.
type Page struct {
	Data    []any `json:"data"`
	Page    int64 `json:"page"`
	PerPage int64 `json:"per_page"`
	// Total is the number of pages.
	Total int64 `json:"total"`
}

// Range returns the half-open range [first, last) of a page:
// ((page-1)*perPage, page*perPage). page and perPage must be at least 1 and
// the end of the page must fit in an int64.
func Range(page, perPage int64) (first, last int64, err error) {
	if page < 1 {
		return 0, 0, types.BadRequest("page must be at least 1, got %d", page).WithData(types.PageField, page)
	}
	if perPage < 1 {
		return 0, 0, types.BadRequest("per_page must be at least 1, got %d", perPage).WithData(types.PerPageField, perPage)
	}
	if perPage > math.MaxInt64/page {
		return 0, 0, types.BadRequest("page %d of %d items is out of range", page, perPage).
			WithData(types.PageField, page)
	}
	return (page - 1) * perPage, page * perPage, nil
}

// TotalPages returns ceil(count/perPage).
func TotalPages(count, perPage int64) int64 {
	if count <= 0 || perPage <= 0 {
		return 0
	}
	return (count + perPage - 1) / perPage
}

// Paginate runs t and returns the requested page of its elements, as value
// maps, with the number of pages. The count and the page come from a single
// traversal:
//
//	t.valueMap(true).by(unfold()).fold()
//	 .project('data','total').by(unfold().range(first,last).fold()).by(unfold().count())
//
// A page past the end is empty.
func Paginate(ctx context.Context, t traversal.Traversal, page, perPage int64) (Page, error) {
	first, last, err := Range(page, perPage)
	if err != nil {
		return Page{}, err
	}

	result, ok, err := t.ValueMap(true).By(traversal.T__.Unfold()).Fold().
		Project("data", "total").
		By(traversal.T__.Unfold().Range(first, last).Fold()).
		By(traversal.T__.Unfold().Count()).
		Next(ctx)
	if err != nil {
		return Page{}, err
	}
	if !ok {
		return Page{}, fmt.Errorf("failed to paginate: traversal returned no result")
	}

	m, isMap := result.(map[string]any)
	if !isMap {
		return Page{}, fmt.Errorf("failed to paginate: unexpected result %T", result)
	}
	data, _ := m["data"].([]any)
	count, ok := toInt64(m["total"])
	if !ok {
		return Page{}, fmt.Errorf("failed to paginate: unexpected total %v", m["total"])
	}

	items := make([]any, len(data))
	for i, item := range data {
		items[i] = FormatValue(item)
	}
	return Page{
		Data:    items,
		Page:    page,
		PerPage: perPage,
		Total:   TotalPages(count, perPage),
	}, nil
}
