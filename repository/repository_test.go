package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"restomap.app/models"
)

// Setup test database with in-memory SQLite
func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique database for each test to avoid data pollution
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.SearchHistory{}, &models.Favorite{})
	assert.NoError(t, err)

	return db
}

func TestSearchHistoryRepository_FindByStationSet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSearchHistoryRepository(db)

	t.Run("NotFound", func(t *testing.T) {
		history, err := repo.FindByStationSet([]string{"tokyo", "shibuya"})
		assert.NoError(t, err)
		assert.Nil(t, history)
	})

	t.Run("FoundRegardlessOfOrder", func(t *testing.T) {
		created, err := repo.FindOrCreate([]string{"tokyo", "shibuya", "ueno"})
		require.NoError(t, err)

		found, err := repo.FindByStationSet([]string{"ueno", "tokyo", "shibuya"})
		assert.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.ID, found.ID)
	})
}

func TestSearchHistoryRepository_FindOrCreate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSearchHistoryRepository(db)

	first, err := repo.FindOrCreate([]string{"shinjuku", "ikebukuro"})
	require.NoError(t, err)

	second, err := repo.FindOrCreate([]string{"ikebukuro", "shinjuku"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.SearchHistory{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSearchHistoryRepository_DistinctSetsGetDistinctRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSearchHistoryRepository(db)

	a, err := repo.FindOrCreate([]string{"tokyo"})
	require.NoError(t, err)
	b, err := repo.FindOrCreate([]string{"tokyo", "shibuya"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestSearchHistoryRepository_StationsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSearchHistoryRepository(db)

	history, err := repo.FindOrCreate([]string{"ueno", "tokyo"})
	require.NoError(t, err)

	// Original order is preserved in storage even though dedup is order-insensitive.
	assert.Equal(t, []string{"ueno", "tokyo"}, history.Stations())
}

func TestSearchHistoryRepository_FindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSearchHistoryRepository(db)

	created, err := repo.FindOrCreate([]string{"tokyo"})
	require.NoError(t, err)

	found, err := repo.FindByID(created.ID)
	assert.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := repo.FindByID(99999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFavoriteRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	histories := NewSearchHistoryRepository(db)
	favorites := NewFavoriteRepository(db)

	history, err := histories.FindOrCreate([]string{"tokyo"})
	require.NoError(t, err)

	created, err := favorites.Create(history.ID, "J001234567")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := favorites.FindBySearchHistoryAndHotpepper(history.ID, "J001234567")
	assert.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := favorites.FindBySearchHistoryAndHotpepper(history.ID, "J000000000")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFavoriteRepository_ListBySearchHistory(t *testing.T) {
	db := setupTestDB(t)
	histories := NewSearchHistoryRepository(db)
	favorites := NewFavoriteRepository(db)

	history, err := histories.FindOrCreate([]string{"tokyo"})
	require.NoError(t, err)

	_, err = favorites.Create(history.ID, "J001")
	require.NoError(t, err)
	_, err = favorites.Create(history.ID, "J002")
	require.NoError(t, err)

	list, err := favorites.ListBySearchHistory(history.ID)
	assert.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "J001", list[0].HotpepperID)
	assert.Equal(t, "J002", list[1].HotpepperID)
}

func TestFavoriteRepository_DeleteByID(t *testing.T) {
	db := setupTestDB(t)
	histories := NewSearchHistoryRepository(db)
	favorites := NewFavoriteRepository(db)

	history, err := histories.FindOrCreate([]string{"tokyo"})
	require.NoError(t, err)

	created, err := favorites.Create(history.ID, "J001234567")
	require.NoError(t, err)

	assert.NoError(t, favorites.DeleteByID(created.ID))

	found, err := favorites.FindBySearchHistoryAndHotpepper(history.ID, "J001234567")
	assert.NoError(t, err)
	assert.Nil(t, found)

	err = favorites.DeleteByID(created.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
