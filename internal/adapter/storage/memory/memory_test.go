package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
)

func TestStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		s := New()

		val, err := s.Get(ctx, "missing")

		assert.ErrorIs(t, err, entity.ErrKeyNotFound)
		assert.Empty(t, val)
	})

	t.Run("set and get", func(t *testing.T) {
		s := New()

		assert.NoError(t, s.Set(ctx, "k", "v1"))
		assert.NoError(t, s.Set(ctx, "k", "v22"))

		val, err := s.Get(ctx, "k")

		assert.NoError(t, err)
		assert.Equal(t, "v22", val)
		assert.Equal(t, len("k")+len("v22"), s.Used())
	})

	t.Run("delete", func(t *testing.T) {
		s := New()

		assert.NoError(t, s.Set(ctx, "k", "v"))
		assert.NoError(t, s.Delete(ctx, "k"))
		assert.NoError(t, s.Delete(ctx, "k"))

		_, err := s.Get(ctx, "k")

		assert.ErrorIs(t, err, entity.ErrKeyNotFound)
		assert.Zero(t, s.Used())
	})

	t.Run("quota exceeded", func(t *testing.T) {
		s := New(WithCapacity(10))

		assert.NoError(t, s.Set(ctx, "k", "12345"))

		err := s.Set(ctx, "k", strings.Repeat("x", 10))

		assert.ErrorIs(t, err, entity.ErrQuotaExceeded)

		val, getErr := s.Get(ctx, "k")

		assert.NoError(t, getErr)
		assert.Equal(t, "12345", val)
	})

	t.Run("overwrite within quota", func(t *testing.T) {
		s := New(WithCapacity(10))

		assert.NoError(t, s.Set(ctx, "k", strings.Repeat("x", 9)))
		assert.NoError(t, s.Set(ctx, "k", strings.Repeat("y", 9)))
	})
}
