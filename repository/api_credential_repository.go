package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clipr-app/clipr/models"
	"gorm.io/gorm"
)

// APICredentialRepositoryImpl implements APICredentialRepository
type APICredentialRepositoryImpl struct {
	*BaseRepository[models.APICredential, models.APICredentialFilter]
}

func NewAPICredentialRepository(db *gorm.DB) APICredentialRepository {
	return &APICredentialRepositoryImpl{BaseRepository: NewBaseRepository[models.APICredential, models.APICredentialFilter](db)}
}

func (r *APICredentialRepositoryImpl) applyFilter(db *gorm.DB, f models.APICredentialFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.OwnerID != nil {
		db = db.Where("owner_id = ?", *f.OwnerID)
	}
	if f.KeyHash != nil {
		db = db.Where("key_hash = ?", *f.KeyHash)
	}
	return db
}

func (r *APICredentialRepositoryImpl) ByFilter(ctx context.Context, filter models.APICredentialFilter, orderBy string, limit, offset int) ([]*models.APICredential, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.APICredential{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.APICredential
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *APICredentialRepositoryImpl) Count(ctx context.Context, filter models.APICredentialFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.APICredential{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *APICredentialRepositoryImpl) Exists(ctx context.Context, filter models.APICredentialFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *APICredentialRepositoryImpl) ByKeyHash(ctx context.Context, keyHash string) (*models.APICredential, error) {
	db := r.getDB(ctx)
	var row models.APICredential
	err := db.Model(&models.APICredential{}).Where("key_hash = ?", keyHash).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *APICredentialRepositoryImpl) ByOwnerID(ctx context.Context, ownerID uint) (*models.APICredential, error) {
	db := r.getDB(ctx)
	var row models.APICredential
	err := db.Model(&models.APICredential{}).Where("owner_id = ?", ownerID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Replace deletes any existing credential for the owner and inserts the new
// one in a single transaction, so an owner never holds two keys at once.
func (r *APICredentialRepositoryImpl) Replace(ctx context.Context, cred *models.APICredential) error {
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

	if err = db.Where("owner_id = ?", cred.OwnerID).Delete(&models.APICredential{}).Error; err != nil {
		err = fmt.Errorf("failed to remove previous credential: %w", err)
		return err
	}
	if err = db.Create(cred).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%w: %v", ErrDuplicateKey, err)
			return err
		}
		err = fmt.Errorf("failed to create credential: %w", err)
		return err
	}

	return nil
}

func (r *APICredentialRepositoryImpl) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.APICredential{}).Where("id = ?", id).UpdateColumn("last_used_at", at).Error
}
