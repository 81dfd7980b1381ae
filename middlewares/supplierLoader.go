package middlewares

import (
	"context"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/florist_backend/models"
	"gorm.io/gorm"
)

type supplierReader struct {
	db *gorm.DB
}

func (r *supplierReader) getSuppliers(ctx context.Context, ids []uuid.UUID) []*dataloader.Result[*models.Supplier] {
	if r.db == nil {
		return handleError[*models.Supplier](len(ids), models.ErrDatabaseNotReady)
	}
	var results []*models.Supplier
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Supplier](len(ids), err)
	}

	return generateLoaderResults(results, ids, func(s *models.Supplier) uuid.UUID { return s.ID })
}

// AttachSuppliers fills Flower.Supplier for every flower that names one, in a single batched read.
func AttachSuppliers(ctx context.Context, flowers ...*models.Flower) error {
	thunks := make([]dataloader.Thunk[*models.Supplier], len(flowers))
	loaders := For(ctx)
	if loaders == nil {
		return errLoadersMissing
	}
	for i, f := range flowers {
		if f.SupplierId != nil {
			thunks[i] = loaders.supplierLoader.Load(ctx, *f.SupplierId)
		}
	}
	for i, thunk := range thunks {
		if thunk == nil {
			continue
		}
		supplier, err := thunk()
		if err != nil {
			return err
		}
		flowers[i].Supplier = supplier
	}
	return nil
}
