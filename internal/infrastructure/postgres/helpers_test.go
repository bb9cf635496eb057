package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextArrayNeverYieldsNil(t *testing.T) {
	got := textArray(nil)
	assert.NotNil(t, got, "nil slice must become an empty array, not SQL NULL")
	assert.Empty(t, got)

	ids := []string{"u-1", "u-2"}
	assert.Equal(t, ids, textArray(ids))
}

func TestNullableAndDeref(t *testing.T) {
	assert.Nil(t, nullable(""))
	if p := nullable("x"); assert.NotNil(t, p) {
		assert.Equal(t, "x", *p)
	}

	assert.Equal(t, "", deref(nil))
	v := "y"
	assert.Equal(t, "y", deref(&v))
}
