package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_IDs(t *testing.T) {
	page := &Page{Items: []Item{{ID: 7}, {ID: 3}, {ID: 9}}}
	assert.Equal(t, []ID{7, 3, 9}, page.IDs())

	var nilPage *Page
	assert.Nil(t, nilPage.IDs())
}

func TestPagination_HasMetadata(t *testing.T) {
	tests := []struct {
		name string
		p    *Pagination
		want bool
	}{
		{name: "nil", p: nil, want: false},
		{name: "zero total pages", p: &Pagination{Total: 10}, want: false},
		{name: "reported", p: &Pagination{Total: 10, TotalPages: 1}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.HasMetadata())
		})
	}
}

func TestItem_DecodesNullAttributes(t *testing.T) {
	raw := `{"id": 27992, "title": "A Sunday on La Grande Jatte", "inscriptions": null, "date_start": null, "date_end": 1886}`

	var item Item
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	assert.Equal(t, ID(27992), item.ID)
	assert.Empty(t, item.Inscriptions)
	assert.Zero(t, item.DateStart)
	assert.Equal(t, 1886, item.DateEnd)
}

func TestPageSourceFunc(t *testing.T) {
	src := PageSourceFunc(func(ctx context.Context, page, size int) (*Page, error) {
		return &Page{Number: page, Size: size}, nil
	})

	page, err := src.FetchPage(context.Background(), 3, 25)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Equal(t, 25, page.Size)
}
