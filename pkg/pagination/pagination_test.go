package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewClamps(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
		wantOffset          int
	}{
		{0, 0, 1, DefaultLimit, 0},
		{3, 10, 3, 10, 20},
		{-2, 5000, 1, MaxLimit, 0},
	}
	for _, tc := range cases {
		p := New(tc.page, tc.limit)
		assert.Equal(t, tc.wantPage, p.Page)
		assert.Equal(t, tc.wantLimit, p.Limit)
		assert.Equal(t, tc.wantOffset, p.Offset)
	}
}

func TestParseAndEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=2&limit=abc", nil)

	p := Parse(c)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)

	env := p.Envelope("rows", []int{1}, 41)
	assert.EqualValues(t, 41, env["total"])
	assert.EqualValues(t, 3, env["pages"])
	assert.Equal(t, []int{1}, env["rows"])
}
