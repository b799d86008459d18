package bitrix

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
		want url.Values
	}{
		{
			name: "list with select and filter",
			cmd: NewCommand("crm.product.list").
				Select("ID", "NAME").
				Filter("UF_ACCESS_ID", "42"),
			want: url.Values{
				"select[]":             {"ID", "NAME"},
				"filter[UF_ACCESS_ID]": {"42"},
			},
		},
		{
			name: "add with fields",
			cmd: NewCommand("crm.product.add").
				Field("NAME", "Мука пшеничная").
				Field("PRICE", "12.50"),
			want: url.Values{
				"fields[NAME]":  {"Мука пшеничная"},
				"fields[PRICE]": {"12.50"},
			},
		},
		{
			name: "multi-value field writes every index",
			cmd: NewCommand("crm.contact.update").
				SetInt("id", 7).
				FieldList("UF_PRODUCTS", []int64{3, 5, 9}),
			want: url.Values{
				"id":                {"7"},
				"fields[UF_PRODUCTS][0]": {"3"},
				"fields[UF_PRODUCTS][1]": {"5"},
				"fields[UF_PRODUCTS][2]": {"9"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.cmd.Encode()
			method, rawQuery, found := cutQuery(encoded)
			require.True(t, found, "encoded command must carry parameters")
			assert.Equal(t, tt.cmd.method, method)

			got, err := url.ParseQuery(rawQuery)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func cutQuery(s string) (method, query string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '?' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func TestCommandEncodeBare(t *testing.T) {
	assert.Equal(t, "crm.measure.list", NewCommand("crm.measure.list").Encode())
}

func TestCommandSetOrderAndChunks(t *testing.T) {
	set := NewCommandSet()
	for i := 0; i < 120; i++ {
		set.Add(fmt.Sprintf("cmd_%d", i), NewCommand("crm.product.list"))
	}
	require.Equal(t, 120, set.Len())

	chunks := set.chunks(BatchLimit)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 50)
	assert.Len(t, chunks[1], 50)
	assert.Len(t, chunks[2], 20)
	assert.Equal(t, "cmd_0", chunks[0][0])
	assert.Equal(t, "cmd_50", chunks[1][0])
	assert.Equal(t, "cmd_119", chunks[2][19])
}

func TestCommandSetReaddKeepsPosition(t *testing.T) {
	set := NewCommandSet().
		Add("a", NewCommand("first")).
		Add("b", NewCommand("second")).
		Add("a", NewCommand("third"))

	require.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"a", "b"}, set.chunks(BatchLimit)[0])
	assert.Equal(t, "third", set.commands["a"])
}
