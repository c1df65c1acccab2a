package migrate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogValidateSequence(t *testing.T) {
	tests := []struct {
		name     string
		versions []int
		want     bool
	}{
		{"empty catalog", nil, true},
		{"single version", []int{1}, true},
		{"contiguous range", []int{1, 2, 3}, true},
		{"gap in sequence", []int{1, 3}, false},
		{"missing version one", []int{2, 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migrations := make([]Migration, 0, len(tt.versions))
			for _, v := range tt.versions {
				migrations = append(migrations, NewScript(v, "test", "SELECT 1", "SELECT 1"))
			}
			c := NewCatalog(migrations...)
			assert.Equal(t, tt.want, c.ValidateSequence())
		})
	}
}

func TestCatalogLoad(t *testing.T) {
	m := NewScript(1, "test", "SELECT 1", "SELECT 1")
	c := NewCatalog(m)

	got, err := c.Load(1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version())

	_, err = c.Load(7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionNotFound))
}

func TestCatalogRegisterRejectsDuplicates(t *testing.T) {
	c := NewCatalog(NewScript(1, "first", "SELECT 1", "SELECT 1"))

	err := c.Register(NewScript(1, "second", "SELECT 1", "SELECT 1"))
	require.Error(t, err)

	err = c.Register(NewScript(0, "zero", "SELECT 1", "SELECT 1"))
	require.Error(t, err)
}

func TestCatalogLatestAndPending(t *testing.T) {
	c := NewCatalog(
		NewScript(1, "one", "SELECT 1", "SELECT 1"),
		NewScript(2, "two", "SELECT 1", "SELECT 1"),
		NewScript(3, "three", "SELECT 1", "SELECT 1"),
	)

	assert.Equal(t, 3, c.Latest())
	assert.Equal(t, []int{1, 2, 3}, c.Versions())

	pending := c.Pending(1)
	assert.Len(t, pending, 2)
	assert.Contains(t, pending, 2)
	assert.Contains(t, pending, 3)

	assert.Empty(t, c.Pending(3))
	assert.Equal(t, 0, NewCatalog().Latest())
}
