package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/clipr-app/clipr/models"
	"gorm.io/gorm"
)

// Facet columns exposed to TopFacet. Anything else is rejected so handler
// input can never reach the SQL text.
var facetColumns = map[string]bool{
	"country":  true,
	"city":     true,
	"browser":  true,
	"os":       true,
	"referrer": true,
}

// ClickRepositoryImpl implements ClickRepository
type ClickRepositoryImpl struct {
	*BaseRepository[models.Click, models.ClickFilter]
}

func NewClickRepository(db *gorm.DB) ClickRepository {
	return &ClickRepositoryImpl{BaseRepository: NewBaseRepository[models.Click, models.ClickFilter](db)}
}

func (r *ClickRepositoryImpl) applyFilter(db *gorm.DB, f models.ClickFilter) *gorm.DB {
	if f.LinkID != nil {
		db = db.Where("link_id = ?", *f.LinkID)
	}
	if f.ClickedAfter != nil {
		db = db.Where("clicked_at >= ?", *f.ClickedAfter)
	}
	if f.ClickedBefore != nil {
		db = db.Where("clicked_at < ?", *f.ClickedBefore)
	}
	if f.DeviceType != nil {
		db = db.Where("device_type = ?", *f.DeviceType)
	}
	if f.Country != nil {
		db = db.Where("country = ?", *f.Country)
	}
	return db
}

func (r *ClickRepositoryImpl) ByFilter(ctx context.Context, filter models.ClickFilter, orderBy string, limit, offset int) ([]*models.Click, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Click{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Click
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ClickRepositoryImpl) Count(ctx context.Context, filter models.ClickFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.Click{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ClickRepositoryImpl) Exists(ctx context.Context, filter models.ClickFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *ClickRepositoryImpl) CountByDate(ctx context.Context, linkID uint, since time.Time) ([]DateCount, error) {
	db := r.getDB(ctx)
	var rows []DateCount
	err := db.Model(&models.Click{}).
		Select("DATE(clicked_at) AS date, COUNT(*) AS count").
		Where("link_id = ? AND clicked_at >= ?", linkID, since).
		Group("DATE(clicked_at)").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ClickRepositoryImpl) TopFacet(ctx context.Context, linkID uint, since time.Time, facet string, limit int) ([]FacetCount, error) {
	if !facetColumns[facet] {
		return nil, fmt.Errorf("unsupported facet column: %s", facet)
	}
	db := r.getDB(ctx)
	var rows []FacetCount
	err := db.Model(&models.Click{}).
		Select(facet+" AS value, COUNT(*) AS count").
		Where("link_id = ? AND clicked_at >= ?", linkID, since).
		Where(facet+" <> ''").
		Group(facet).
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ClickRepositoryImpl) DeviceBreakdown(ctx context.Context, linkID uint, since time.Time) ([]FacetCount, error) {
	db := r.getDB(ctx)
	var rows []FacetCount
	err := db.Model(&models.Click{}).
		Select("device_type AS value, COUNT(*) AS count").
		Where("link_id = ? AND clicked_at >= ?", linkID, since).
		Where("device_type <> ''").
		Group("device_type").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ClickRepositoryImpl) CountSince(ctx context.Context, linkID uint, since time.Time) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Click{}).
		Where("link_id = ? AND clicked_at >= ?", linkID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ClickRepositoryImpl) DistinctVisitors(ctx context.Context, linkID uint, since time.Time) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Click{}).
		Where("link_id = ? AND clicked_at >= ?", linkID, since).
		Where("ip_hash <> ''").
		Distinct("ip_hash").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
