// Package repository implements data access layer for the application
package repository

import (
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"
	"restomap.app/models"
)

// SearchHistoryRepository handles data access operations for search histories
type SearchHistoryRepository struct {
	db *gorm.DB
}

// NewSearchHistoryRepository creates a new repository for search history data
func NewSearchHistoryRepository(db *gorm.DB) *SearchHistoryRepository {
	return &SearchHistoryRepository{db: db}
}

// FindByStationSet retrieves a search history whose station set matches,
// regardless of station order
func (r *SearchHistoryRepository) FindByStationSet(stationIDs []string) (*models.SearchHistory, error) {
	key := models.StationSetKey(stationIDs)
	log.Printf("[DEBUG] SearchHistoryRepository.FindByStationSet: key=%s\n", key)

	var history models.SearchHistory
	result := r.db.Where("station_key = ?", key).First(&history)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			log.Println("[DEBUG] No search history found")
			return nil, nil
		}
		log.Printf("[ERROR] Database error when finding search history: %v\n", result.Error)
		return nil, result.Error
	}

	log.Printf("[DEBUG] Found search history: id=%d\n", history.ID)
	return &history, nil
}

// FindByID retrieves a search history by its ID
func (r *SearchHistoryRepository) FindByID(id uint) (*models.SearchHistory, error) {
	var history models.SearchHistory
	result := r.db.First(&history, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("[ERROR] Database error when finding search history by ID: %v\n", result.Error)
		return nil, result.Error
	}
	return &history, nil
}

// FindOrCreate returns the history for a station set, creating it on first
// use. Histories are deduplicated by order-insensitive station set and are
// immutable once created, so retries land on the same row.
func (r *SearchHistoryRepository) FindOrCreate(stationIDs []string) (*models.SearchHistory, error) {
	existing, err := r.FindByStationSet(stationIDs)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	history := &models.SearchHistory{
		StationIDs: strings.Join(stationIDs, ","),
		StationKey: models.StationSetKey(stationIDs),
	}
	if err := r.db.Create(history).Error; err != nil {
		// A concurrent caller may have created the same set first.
		if retry, findErr := r.FindByStationSet(stationIDs); findErr == nil && retry != nil {
			return retry, nil
		}
		log.Printf("[ERROR] Database error when creating search history: %v\n", err)
		return nil, err
	}

	log.Printf("[DEBUG] Created search history with ID: %d\n", history.ID)
	return history, nil
}

// FavoriteRepository handles data access operations for favorites
type FavoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a new repository for favorite data
func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Create persists a new favorite
func (r *FavoriteRepository) Create(searchHistoryID uint, hotpepperID string) (*models.Favorite, error) {
	log.Printf("[DEBUG] FavoriteRepository.Create: searchHistoryID=%d, hotpepperID=%s\n",
		searchHistoryID, hotpepperID)

	favorite := &models.Favorite{
		SearchHistoryID: searchHistoryID,
		HotpepperID:     hotpepperID,
	}

	result := r.db.Create(favorite)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when creating favorite: %v\n", result.Error)
		return nil, result.Error
	}

	log.Printf("[DEBUG] Created favorite with ID: %d\n", favorite.ID)
	return favorite, nil
}

// FindBySearchHistoryAndHotpepper retrieves a favorite for the status probe
func (r *FavoriteRepository) FindBySearchHistoryAndHotpepper(searchHistoryID uint, hotpepperID string) (*models.Favorite, error) {
	var favorite models.Favorite
	result := r.db.Where("search_history_id = ? AND hotpepper_id = ?", searchHistoryID, hotpepperID).First(&favorite)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("[ERROR] Database error when finding favorite: %v\n", result.Error)
		return nil, result.Error
	}
	return &favorite, nil
}

// ListBySearchHistory retrieves every favorite saved from one search
func (r *FavoriteRepository) ListBySearchHistory(searchHistoryID uint) ([]models.Favorite, error) {
	var favorites []models.Favorite
	result := r.db.Where("search_history_id = ?", searchHistoryID).Order("id").Find(&favorites)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when listing favorites: %v\n", result.Error)
		return nil, result.Error
	}
	return favorites, nil
}

// DeleteByID removes a favorite. The server-assigned id is the only valid
// removal key.
func (r *FavoriteRepository) DeleteByID(id uint) error {
	log.Printf("[DEBUG] FavoriteRepository.DeleteByID: id=%d\n", id)

	result := r.db.Delete(&models.Favorite{}, id)
	if result.Error != nil {
		log.Printf("[ERROR] Database error when deleting favorite: %v\n", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	log.Println("[DEBUG] Deleted favorite successfully")
	return nil
}
