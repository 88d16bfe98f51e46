package gqlgremlin

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/go-graphql-gremlin/pkg/memgraph"
	"github.com/llehouerou/go-graphql-gremlin/pkg/traversal"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

func TestRange(t *testing.T) {
	tests := []struct {
		page, perPage int64
		first, last   int64
	}{
		{1, 10, 0, 10},
		{2, 10, 10, 20},
		{3, 7, 14, 21},
		{1, 1, 0, 1},
		{1, math.MaxInt64, 0, math.MaxInt64},
		{math.MaxInt64, 1, math.MaxInt64 - 1, math.MaxInt64},
	}
	for _, tt := range tests {
		first, last, err := Range(tt.page, tt.perPage)
		if err != nil {
			t.Errorf("Range(%d, %d): unexpected error %v", tt.page, tt.perPage, err)
			continue
		}
		if first != tt.first || last != tt.last {
			t.Errorf("Range(%d, %d): expected [%d, %d), got [%d, %d)", tt.page, tt.perPage, tt.first, tt.last, first, last)
		}
		if last-first != tt.perPage {
			t.Errorf("Range(%d, %d): expected a range of %d, got %d", tt.page, tt.perPage, tt.perPage, last-first)
		}
	}
}

func TestRangeAdjacentPages(t *testing.T) {
	for perPage := int64(1); perPage <= 5; perPage++ {
		for page := int64(1); page <= 5; page++ {
			_, last, _ := Range(page, perPage)
			next, _, _ := Range(page+1, perPage)
			if last != next {
				t.Errorf("page %d/%d ends at %d but the next page starts at %d", page, perPage, last, next)
			}
		}
	}
}

func TestRangeErrors(t *testing.T) {
	for _, tt := range [][2]int64{{0, 10}, {-1, 10}, {1, 0}, {1, -5}, {3, 1 << 62}, {2, math.MaxInt64}, {math.MaxInt64, 2}} {
		_, _, err := Range(tt[0], tt[1])
		f, ok := types.AsFailure(err)
		if !ok || f.Type != types.ErrorTypeBadRequest {
			t.Errorf("Range(%d, %d): expected BAD_REQUEST, got %v", tt[0], tt[1], err)
		}
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		count, perPage, want int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{23, 10, 3},
		{23, 1, 23},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.count, tt.perPage); got != tt.want {
			t.Errorf("TotalPages(%d, %d): expected %d, got %d", tt.count, tt.perPage, tt.want, got)
		}
	}
}

func newItemsGraph(t *testing.T, n int) *memgraph.Graph {
	t.Helper()
	g := memgraph.New()
	for i := range n {
		_, err := g.AddVertex(fmt.Sprintf("i%02d", i), "Item", map[string]any{"rank": int64(i)})
		require.NoError(t, err)
	}
	return g
}

func TestPaginate(t *testing.T) {
	g := newItemsGraph(t, 23)
	ctx := context.Background()
	items := g.Source().V().HasLabel("Item")

	tests := []struct {
		page     int64
		wantLen  int
		wantHead string
	}{
		{1, 10, "i00"},
		{2, 10, "i10"},
		{3, 3, "i20"},
		{4, 0, ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			p, err := Paginate(ctx, items, tt.page, 10)
			require.NoError(t, err)
			assert.Equal(t, int64(3), p.Total)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, int64(10), p.PerPage)
			require.Len(t, p.Data, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantHead, p.Data[0].(map[string]any)["id"])
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	g := newItemsGraph(t, 0)

	p, err := Paginate(context.Background(), g.Source().V(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Total)
	assert.Empty(t, p.Data)
}

func TestPaginateInvalid(t *testing.T) {
	g := newItemsGraph(t, 1)

	_, err := Paginate(context.Background(), g.Source().V(), 0, 10)
	f, ok := types.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeBadRequest, f.Type)
}

func TestPaginateTraversal(t *testing.T) {
	var submitted traversal.Traversal
	exec := traversal.ExecutorFunc(func(_ context.Context, t traversal.Traversal) ([]any, error) {
		submitted = t
		return []any{map[string]any{"data": []any{}, "total": int64(0)}}, nil
	})

	_, err := Paginate(context.Background(), traversal.NewSource("g", exec).V().HasLabel("Item"), 2, 5)
	require.NoError(t, err)
	assert.Equal(t,
		"g.V().hasLabel('Item').valueMap(true).by(__.unfold()).fold()"+
			".project('data','total').by(__.unfold().range(5L,10L).fold()).by(__.unfold().count())",
		submitted.String())
}
