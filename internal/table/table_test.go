package table

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func queryOf(raw string, keys ...string) Query {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/x?"+raw, nil)
	return ParseQuery(c, keys...)
}

func TestParseQueryDefaults(t *testing.T) {
	q := queryOf("")
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Empty(t, q.Search)

	q = queryOf("page=-3&limit=500")
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)

	q = queryOf("page=3&limit=25&search=+jane+&role=landlord&status=all", "role", "status")
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 25, q.Limit)
	assert.Equal(t, "jane", q.Search)
	assert.Equal(t, "landlord", q.Filter("role"))
	assert.Empty(t, q.Filter("status"))
}

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i + 1
	}

	p := Paginate(items, 1, 10)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, p.Items)
	assert.Equal(t, 23, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 1, p.From)
	assert.Equal(t, 10, p.To)

	p = Paginate(items, 3, 10)
	assert.Equal(t, []int{21, 22, 23}, p.Items)
	assert.Equal(t, 21, p.From)
	assert.Equal(t, 23, p.To)

	p = Paginate(items, 4, 10)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.Zero(t, p.From)
	assert.Equal(t, 23, p.Total)

	empty := Paginate([]string(nil), 1, 10)
	assert.Zero(t, empty.TotalPages)
	assert.Zero(t, empty.To)
}

func TestFilterAndMatch(t *testing.T) {
	type row struct{ name, role string }
	rows := []row{{"Jane Doe", "landlord"}, {"John Roe", "comrade"}, {"Ann Lee", "Landlord"}}

	got := Filter(rows, func(r row) bool { return Is("landlord", r.role) && Matches("", r.name) })
	assert.Len(t, got, 2)

	got = Filter(rows, func(r row) bool { return Matches("ROE", r.name) })
	assert.Equal(t, []row{{"John Roe", "comrade"}}, got)

	assert.True(t, Is("", "anything"))
	assert.False(t, Matches("zzz", "a", "b"))
}

func TestWindow(t *testing.T) {
	p := Window([]string{"k", "l"}, 12, 2, 10)
	assert.Equal(t, 11, p.From)
	assert.Equal(t, 12, p.To)
	assert.Equal(t, 2, p.TotalPages)

	empty := Window[string](nil, 0, 1, 10)
	assert.NotNil(t, empty.Items)
	assert.Zero(t, empty.From)
}
