package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/utils"
	"gorm.io/gorm"
)

// ProductRepositoryImpl implements ProductRepository interface
type ProductRepositoryImpl struct {
	*BaseRepository[models.Product, models.ProductFilter]
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &ProductRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Product, models.ProductFilter](db),
	}
}

func (r *ProductRepositoryImpl) LockByID(ctx context.Context, id uint) (*models.Product, error) {
	return r.lockByID(ctx, id)
}

func (r *ProductRepositoryImpl) ByFilter(ctx context.Context, filter models.ProductFilter, limit, offset int) ([]*models.Product, error) {
	query := r.getDB(ctx)
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var products []*models.Product
	if err := paginate(query.Order("created_at DESC, id DESC"), limit, offset).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// MarkSold flips an available product to sold
func (r *ProductRepositoryImpl) MarkSold(ctx context.Context, id uint) (bool, error) {
	res := r.getDB(ctx).Model(&models.Product{}).
		Where("id = ? AND status = ?", id, models.ProductStatusAvailable).
		Updates(map[string]any{"status": models.ProductStatusSold, "updated_at": utils.UTCNow()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark product %d sold: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ProductRepositoryImpl) SavePurchase(ctx context.Context, purchase *models.ProductPurchase) error {
	if err := r.getDB(ctx).Create(purchase).Error; err != nil {
		return fmt.Errorf("failed to save product purchase: %w", mapDBError(err))
	}
	return nil
}
