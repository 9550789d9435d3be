package listing

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		page, size int
		wantItems  []int
		wantPages  int
	}{
		{"last partial page", 23, 3, 10, []int{21, 22, 23}, 3},
		{"first page", 23, 1, 10, seq(10), 3},
		{"past the end", 23, 4, 10, []int{}, 3},
		{"empty list", 0, 1, 10, []int{}, 1},
		{"page below one", 5, 0, 10, seq(5), 1},
		{"exact multiple", 20, 2, 10, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Paginate(seq(tt.total), tt.page, tt.size)
			assert.Equal(t, tt.wantItems, res.Items)
			assert.Equal(t, tt.wantPages, res.TotalPages)
			assert.Equal(t, tt.total, res.TotalCount)
		})
	}
}

func TestPaginate_LengthProperty(t *testing.T) {
	items := seq(37)
	for size := 1; size <= 12; size++ {
		for page := 1; page <= 40; page++ {
			res := Paginate(items, page, size)
			want := len(items) - (page-1)*size
			if want < 0 {
				want = 0
			}
			if want > size {
				want = size
			}
			require.Len(t, res.Items, want, "page %d size %d", page, size)
		}
	}
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, 10, ClampPageSize(0, 10, 100))
	assert.Equal(t, 25, ClampPageSize(25, 10, 100))
	assert.Equal(t, 100, ClampPageSize(500, 10, 100))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-1, 0, 0))
}

type row struct {
	name   string
	handle string
	phone  string
	at     time.Time
	plan   string
}

var rowSpec = Spec[row]{
	Fields: []Field[row]{
		{Name: "customer", Value: func(r row) string { return r.name }},
		{Name: "username", Value: func(r row) string { return r.handle }},
		{Name: "phone", Value: func(r row) string { return r.phone }},
	},
	DateOf: func(r row) time.Time { return r.at },
}

func rows() []row {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return []row{
		{"Asha Rao", "asha_r", "9876543210", base, "Monthly"},
		{"Vikram Shah", "vik", "9123456780", base.AddDate(0, 0, 3), "Quarterly"},
		{"Meera Iyer", "meera", "9000011111", base.AddDate(0, 0, 1), "Monthly"},
		{"Rahul Das", "rash", "9988776655", base.AddDate(0, 0, 5), "Monthly"},
	}
}

func names(res Result[row]) []string {
	out := make([]string, len(res.Items))
	for i, r := range res.Items {
		out[i] = r.name
	}
	return out
}

func TestApply_SortsNewestFirst(t *testing.T) {
	res, err := Apply(rows(), rowSpec, Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rahul Das", "Vikram Shah", "Meera Iyer", "Asha Rao"}, names(res))
	assert.Equal(t, 4, res.TotalCount)
	assert.Equal(t, 1, res.TotalPages)
}

func TestApply_Search(t *testing.T) {
	res, err := Apply(rows(), rowSpec, Params{Search: "SH"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rahul Das", "Vikram Shah", "Asha Rao"}, names(res))

	res, err = Apply(rows(), rowSpec, Params{Search: "ra", SearchField: "username"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rahul Das", "Meera Iyer"}, names(res))

	res, err = Apply(rows(), rowSpec, Params{Search: "98765", SearchField: "phone"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Asha Rao"}, names(res))

	_, err = Apply(rows(), rowSpec, Params{Search: "x", SearchField: "email"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestApply_PredicatesAndRange(t *testing.T) {
	monthly := func(r row) bool { return r.plan == "Monthly" }
	rng, err := DayRange("2024-06-01", "2024-06-02", time.UTC)
	require.NoError(t, err)

	res, err := Apply(rows(), rowSpec, Params{Range: rng}, monthly)
	require.NoError(t, err)
	assert.Equal(t, []string{"Meera Iyer", "Asha Rao"}, names(res))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := rows()
	_, err := Apply(in, rowSpec, Params{})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", in[0].name)
}

func TestApply_PagesAfterFiltering(t *testing.T) {
	var many []row
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		many = append(many, row{name: "n" + strconv.Itoa(i), at: base.Add(time.Duration(i) * time.Hour)})
	}
	res, err := Apply(many, rowSpec, Params{Page: 2, PageSize: 25})
	require.NoError(t, err)
	assert.Len(t, res.Items, 5)
	assert.Equal(t, 2, res.TotalPages)
	assert.False(t, res.HasMore())
	assert.Equal(t, "n4", res.Items[0].name)
}

func TestPage(t *testing.T) {
	res := Page[int](nil, 41, 2, 20)
	assert.Equal(t, []int{}, res.Items)
	assert.Equal(t, 3, res.TotalPages)
	assert.True(t, res.HasMore())
	assert.Equal(t, 1, TotalPages(0, 10))
}
