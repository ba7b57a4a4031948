package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/repository"
)

func TestEnsureMatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	repo := repository.NewMatchRepository(database)

	created, err := repo.Ensure(ctx, 7, 3)
	require.NoError(t, err)
	assert.True(t, created)

	// same pair in the opposite direction must not create a second row
	created, err = repo.Ensure(ctx, 3, 7)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, database.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// row is stored in canonical order
	var match db.Match
	require.NoError(t, database.First(&match).Error)
	assert.Equal(t, uint64(3), match.UserAID)
	assert.Equal(t, uint64(7), match.UserBID)
}

func TestExistsForPairIsSymmetric(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	_, err := repo.Ensure(ctx, 1, 2)
	require.NoError(t, err)

	ok, err := repo.ExistsForPair(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsForPair(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsForPair(ctx, 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	_, err := repo.Ensure(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.Ensure(ctx, 3, 1)
	require.NoError(t, err)
	_, err = repo.Ensure(ctx, 2, 3)
	require.NoError(t, err)

	matches, err := repo.ListForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
