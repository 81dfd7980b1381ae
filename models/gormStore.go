package models

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/config"
	"github.com/mmdatafocus/florist_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	mysqlErrDuplicateEntry   = 1062
	mysqlErrLockWaitTimeout  = 1205
	mysqlErrDeadlockDetected = 1213
)

// GormStore is the MySQL Store.
type GormStore struct {
	db          *gorm.DB
	logger      *logrus.Logger
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

func NewGormStore(db *gorm.DB, logger *logrus.Logger) *GormStore {
	return &GormStore{
		db:          db,
		logger:      logger,
		maxAttempts: config.SaleTransactionMaxAttempts(),
		backoff:     txBackoff,
	}
}

// 25ms, 100ms, 225ms, ...
func txBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 25 * time.Millisecond
}

// Transaction re-runs fn from scratch when MySQL aborts it with a deadlock or lock wait timeout.
// No other failure is retried.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx StoreTx) error) error {
	if s.db == nil {
		return ErrDatabaseNotReady
	}
	return s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormStoreTx{tx: tx})
		})
	})
}

func (s *GormStore) withRetry(ctx context.Context, run func() error) error {
	for attempt := 1; ; attempt++ {
		err := run()
		if err == nil || attempt >= s.maxAttempts || !isRetryableTxErr(err) {
			return err
		}
		backoff := s.backoff(attempt)
		s.logger.WithFields(logrus.Fields{
			"field":   "GormStore.Transaction",
			"attempt": attempt,
		}).Warn("transaction aborted by mysql; retrying in " + backoff.String() + ": " + err.Error())
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
	}
}

func (s *GormStore) RecentSales(ctx context.Context, limit int) ([]*Sale, error) {
	if s.db == nil {
		return nil, ErrDatabaseNotReady
	}
	var sales []*Sale
	err := s.salesQuery(ctx).
		Order("sale_date DESC").
		Order("id DESC").
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	if err := s.attachFlowerNames(ctx, sales...); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *GormStore) FindSaleByIdempotencyKey(ctx context.Context, key string) (*Sale, error) {
	if s.db == nil {
		return nil, ErrDatabaseNotReady
	}
	var sale Sale
	err := s.salesQuery(ctx).Where("idempotency_key = ?", key).Take(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachFlowerNames(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *GormStore) StockMovements(ctx context.Context, flowerId uuid.UUID, limit int) ([]*StockMovement, error) {
	if s.db == nil {
		return nil, ErrDatabaseNotReady
	}
	var movements []*StockMovement
	err := s.db.WithContext(ctx).
		Where("flower_id = ?", flowerId).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&movements).Error
	return movements, err
}

func (s *GormStore) LedgerTotals(ctx context.Context) ([]*FlowerLedgerTotal, error) {
	if s.db == nil {
		return nil, ErrDatabaseNotReady
	}
	sql := `
SELECT
    f.id AS flower_id,
    f.name,
    f.opening_stock,
    f.current_stock,
    COALESCE(SUM(m.quantity), 0) AS movement_total
FROM
    flowers f
    LEFT JOIN stock_movements m ON m.flower_id = f.id
GROUP BY
    f.id, f.name, f.opening_stock, f.current_stock
ORDER BY
    f.name
`
	var totals []*FlowerLedgerTotal
	if err := s.db.WithContext(ctx).Raw(sql).Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *GormStore) salesQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no")
	})
}

func (s *GormStore) attachFlowerNames(ctx context.Context, sales ...*Sale) error {
	var ids []uuid.UUID
	for _, sale := range sales {
		for _, item := range sale.Items {
			ids = append(ids, item.FlowerId)
		}
	}
	ids = utils.UniqueSlice(ids)
	if len(ids) == 0 {
		return nil
	}
	var flowers []Flower
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&flowers).Error; err != nil {
		return err
	}
	names := make(map[uuid.UUID]string, len(flowers))
	for _, f := range flowers {
		names[f.ID] = f.Name
	}
	for _, sale := range sales {
		for i := range sale.Items {
			sale.Items[i].FlowerName = names[sale.Items[i].FlowerId]
		}
	}
	return nil
}

type gormStoreTx struct {
	tx *gorm.DB
}

// SELECT ... FOR UPDATE so the read is current, not the transaction's snapshot.
func (t *gormStoreTx) GetFlower(id uuid.UUID) (*Flower, error) {
	var flower Flower
	if err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&flower).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &flower, nil
}

// The WHERE guard makes check-and-decrement a single statement; InnoDB holds the row lock until commit.
func (t *gormStoreTx) DecrementStockIfAvailable(id uuid.UUID, quantity int) (bool, error) {
	res := t.tx.Model(&Flower{}).
		Where("id = ? AND current_stock >= ?", id, quantity).
		Update("current_stock", gorm.Expr("current_stock - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *gormStoreTx) IncrementStock(id uuid.UUID, quantity int) error {
	res := t.tx.Model(&Flower{}).
		Where("id = ?", id).
		Update("current_stock", gorm.Expr("current_stock + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func (t *gormStoreTx) CreateSale(sale *Sale) error {
	err := t.tx.Omit(clause.Associations).Create(sale).Error
	if isDuplicateKeyErr(err) {
		return ErrDuplicateIdempotencyKey
	}
	return err
}

func (t *gormStoreTx) CreateSaleItem(item *SaleItem) error {
	return t.tx.Create(item).Error
}

func (t *gormStoreTx) AppendMovement(movement *StockMovement) error {
	return t.tx.Create(movement).Error
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return false
}

func isRetryableTxErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDeadlockDetected || mysqlErr.Number == mysqlErrLockWaitTimeout
	}
	return false
}
