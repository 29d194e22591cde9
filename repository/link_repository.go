package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkRepositoryImpl implements LinkRepository
type LinkRepositoryImpl struct {
	*BaseRepository[models.Link, models.LinkFilter]
}

func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &LinkRepositoryImpl{BaseRepository: NewBaseRepository[models.Link, models.LinkFilter](db)}
}

func (r *LinkRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	filter := models.LinkFilter{UUID: &id}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *LinkRepositoryImpl) Resolve(ctx context.Context, identifier string) (*models.Link, error) {
	db := r.getDB(ctx)
	var row models.Link
	err := db.Model(&models.Link{}).
		Where("short_code = ? OR custom_slug = ?", identifier, identifier).
		Where("is_active = ?", true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *LinkRepositoryImpl) IsTaken(ctx context.Context, identifier string) (bool, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Link{}).
		Where("short_code = ? OR custom_slug = ?", identifier, identifier).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *LinkRepositoryImpl) CreateWithIdentifiers(ctx context.Context, link *models.Link) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	if err = db.Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%w: %v", ErrDuplicateKey, err)
			return err
		}
		err = fmt.Errorf("failed to create link: %w", err)
		return err
	}

	claims := []models.LinkIdentifier{{Identifier: link.ShortCode, LinkID: link.ID}}
	if link.CustomSlug != nil && *link.CustomSlug != "" {
		claims = append(claims, models.LinkIdentifier{Identifier: *link.CustomSlug, LinkID: link.ID})
	}
	if err = db.Create(&claims).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%w: %v", ErrDuplicateKey, err)
			return err
		}
		err = fmt.Errorf("failed to claim link identifiers: %w", err)
		return err
	}

	return nil
}

// IncrementClickCount is a relative update so that concurrent redirects on the
// same link never lose counts. updated_at is deliberately left untouched.
func (r *LinkRepositoryImpl) IncrementClickCount(ctx context.Context, linkID uint) error {
	db := r.getDB(ctx)
	res := db.Model(&models.Link{}).
		Where("id = ?", linkID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment click count for link %d: %w", linkID, res.Error)
	}
	return nil
}

func (r *LinkRepositoryImpl) Update(ctx context.Context, link *models.Link) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	link.UpdatedAt = utils.UTCNow()
	err = db.Model(&models.Link{}).Where("id = ?", link.ID).Updates(map[string]any{
		"original_url": link.OriginalURL,
		"title":        link.Title,
		"updated_at":   link.UpdatedAt,
	}).Error
	if err != nil {
		err = fmt.Errorf("failed to update link %d: %w", link.ID, err)
		return err
	}

	return nil
}

func (r *LinkRepositoryImpl) Deactivate(ctx context.Context, linkID uint) error {
	db := r.getDB(ctx)
	err := db.Model(&models.Link{}).Where("id = ?", linkID).Updates(map[string]any{
		"is_active":  false,
		"updated_at": utils.UTCNow(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate link %d: %w", linkID, err)
	}
	return nil
}

func (r *LinkRepositoryImpl) TotalClickCount(ctx context.Context, ownerID uint) (int64, error) {
	db := r.getDB(ctx)
	var total int64
	err := db.Model(&models.Link{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(click_count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *LinkRepositoryImpl) applyFilter(db *gorm.DB, f models.LinkFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.ShortCode != nil {
		db = db.Where("short_code = ?", *f.ShortCode)
	}
	if f.CustomSlug != nil {
		db = db.Where("custom_slug = ?", *f.CustomSlug)
	}
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.Search != nil && *f.Search != "" {
		pattern := "%" + *f.Search + "%"
		db = db.Where(
			"original_url ILIKE ? OR custom_slug ILIKE ? OR title ILIKE ? OR short_code ILIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *LinkRepositoryImpl) ByFilter(ctx context.Context, filter models.LinkFilter, orderBy string, limit, offset int) ([]*models.Link, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Link{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Link
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LinkRepositoryImpl) Count(ctx context.Context, filter models.LinkFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Link{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinkRepositoryImpl) Exists(ctx context.Context, filter models.LinkFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
