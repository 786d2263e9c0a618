package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(s string) string { return s }

func TestCursorRoundTrip(t *testing.T) {
	cursor := EncodeCursor("note-42")
	id, err := DecodeCursor(cursor)

	require.NoError(t, err)
	assert.Equal(t, "note-42", id)
}

func TestEncodeCursor_Empty(t *testing.T) {
	assert.Equal(t, "", EncodeCursor(""))

	id, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, c := range []string{"%%%", "bm90LWEtY3Vyc29y"} {
		_, err := DecodeCursor(c)
		assert.ErrorIs(t, err, ErrInvalidCursor, c)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 5, ClampLimit(5))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+1))
}

func TestPaginate(t *testing.T) {
	items := []string{"e", "d", "c", "b", "a"}

	page, err := Paginate(items, "", 2, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d"}, page.Items)
	assert.True(t, page.HasMore)

	page, err = Paginate(items, page.Cursor, 2, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, page.Items)
	assert.True(t, page.HasMore)

	page, err = Paginate(items, page.Cursor, 2, identity)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, page.Items)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.Cursor)
}

func TestPaginate_StaleCursor(t *testing.T) {
	_, err := Paginate([]string{"a"}, EncodeCursor("gone"), 10, identity)
	assert.ErrorIs(t, err, ErrStaleCursor)
}

func TestPaginate_Empty(t *testing.T) {
	page, err := Paginate([]string{}, "", 10, identity)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
}
