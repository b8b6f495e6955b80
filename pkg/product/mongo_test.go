package product

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("SIGNMAKER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SIGNMAKER_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := fmt.Sprintf("signmaker_test_%d", time.Now().UnixNano())
	s, err := OpenMongo(ctx, uri, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Database(db).Drop(context.Background())
		s.Close()
	})

	require.NoError(t, s.Create(ctx, validProduct()))
	err = s.Create(ctx, validProduct())
	assert.True(t, errors.Is(err, errors.ErrCodeConflict), "duplicate: %v", err)

	scale := 0.8
	updated, err := s.Update(ctx, "M1001", Patch{TextScale: &scale})
	require.NoError(t, err)
	assert.Equal(t, 0.8, updated.TextScale)

	got, err := s.Get(ctx, "M1001")
	require.NoError(t, err)
	assert.Equal(t, 0.8, got.TextScale)
	assert.Equal(t, []string{"no_entry.svg"}, got.Icons)

	list, err := s.List(ctx, Filter{QAStatus: QAPending})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, "M1001"))
	_, err = s.Get(ctx, "M1001")
	assert.True(t, errors.IsNotFound(err))
}
