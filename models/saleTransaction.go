package models

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/config"
	"github.com/mmdatafocus/florist_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SaleService records sales and serves the recent-sales view.
type SaleService struct {
	store       Store
	ledger      *StockLedger
	logger      *logrus.Logger
	phoneRegion string
	now         func() time.Time
}

func NewSaleService(store Store, ledger *StockLedger, logger *logrus.Logger) *SaleService {
	return &SaleService{
		store:       store,
		ledger:      ledger,
		logger:      logger,
		phoneRegion: config.DefaultPhoneRegion(),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// RecordSale validates the sale, checks stock, and in one transaction writes the sale, its items,
// the stock decrements and one sale movement per item. The total is always computed here.
//
// When input carries an idempotency key that was already recorded, the stored sale is returned
// with replayed set and nothing new is written.
//
// Every error is a *ValidationError, *NotFoundError, *InsufficientStockError or *StorageFault.
func (s *SaleService) RecordSale(ctx context.Context, input *NewSale) (sale *Sale, replayed bool, err error) {
	if input == nil {
		return nil, false, validationError("", "sale is required")
	}
	ctx, span := tracer.Start(ctx, "RecordSale", trace.WithAttributes(attribute.Int("sale.items", len(input.Items))))
	defer func() {
		endSpan(span, err)
	}()

	if err := input.validate(s.phoneRegion); err != nil {
		return nil, false, err
	}

	if key := input.IdempotencyKey; key != "" {
		release := s.lockIdempotencyKey(ctx, key)
		defer release()

		existing, err := s.store.FindSaleByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, false, asDomainError("find sale by idempotency key", err)
		}
		if existing != nil {
			span.SetAttributes(attribute.Bool("sale.replayed", true))
			return existing, true, nil
		}
	}

	sale, err = s.commitSale(ctx, input)
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		// lost a race with a concurrent submission of the same key
		existing, findErr := s.store.FindSaleByIdempotencyKey(ctx, input.IdempotencyKey)
		if findErr != nil {
			return nil, false, asDomainError("find sale by idempotency key", findErr)
		}
		if existing != nil {
			return existing, true, nil
		}
	}
	if err != nil {
		return nil, false, asDomainError("record sale", err)
	}

	s.invalidateRecentSales()
	span.SetAttributes(
		attribute.String("sale.id", sale.ID.String()),
		attribute.String("sale.total", sale.TotalAmount.String()),
	)
	return sale, false, nil
}

func (s *SaleService) commitSale(ctx context.Context, input *NewSale) (*Sale, error) {
	requested := input.requestedByFlower()
	flowerIds := input.flowerIds()
	recordedBy := recordedByFromContext(ctx)

	var committed *Sale
	err := s.store.Transaction(ctx, func(tx StoreTx) error {
		// may run more than once; build everything from scratch each time
		flowers := make(map[uuid.UUID]*Flower, len(flowerIds))
		for _, id := range flowerIds {
			flower, err := tx.GetFlower(id)
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return &NotFoundError{Resource: "flower", Id: id.String()}
			}
			if err != nil {
				return err
			}
			flowers[id] = flower
		}
		for _, id := range flowerIds {
			flower := flowers[id]
			if requested[id] > flower.CurrentStock {
				return &InsufficientStockError{
					FlowerId:   id,
					FlowerName: flower.Name,
					Requested:  requested[id],
					Available:  flower.CurrentStock,
				}
			}
		}

		sale, err := buildSale(input, flowers, s.now())
		if err != nil {
			return err
		}
		sale.RecordedByUserId = recordedBy

		if err := tx.CreateSale(sale); err != nil {
			return err
		}
		for i := range sale.Items {
			if err := tx.CreateSaleItem(&sale.Items[i]); err != nil {
				return err
			}
		}
		reference := sale.ID
		for _, item := range itemsInLockOrder(sale.Items) {
			ok, err := tx.DecrementStockIfAvailable(item.FlowerId, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				available := 0
				if current, err := tx.GetFlower(item.FlowerId); err == nil {
					available = current.CurrentStock
				}
				return &InsufficientStockError{
					FlowerId:   item.FlowerId,
					FlowerName: item.FlowerName,
					Requested:  item.Quantity,
					Available:  available,
				}
			}
			if _, err := s.ledger.AppendMovement(tx, item.FlowerId, MovementTypeSale, -item.Quantity, &reference, sale.ShortReference()); err != nil {
				return err
			}
		}
		committed = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.TotalAmount.Valid && !input.TotalAmount.Decimal.Equal(committed.TotalAmount) {
		s.logger.WithFields(logrus.Fields{
			"field":        "SaleService.RecordSale",
			"sale_id":      committed.ID.String(),
			"client_total": input.TotalAmount.Decimal.String(),
			"total":        committed.TotalAmount.String(),
		}).Warn("client total ignored")
	}
	return committed, nil
}

// buildSale prices every line and computes the total. Omitted unit prices take the flower's selling price.
func buildSale(input *NewSale, flowers map[uuid.UUID]*Flower, now time.Time) (*Sale, error) {
	sale := &Sale{
		ID:            uuid.New(),
		SaleDate:      now,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
		Items:         make([]SaleItem, 0, len(input.Items)),
	}
	if input.IdempotencyKey != "" {
		key := input.IdempotencyKey
		sale.IdempotencyKey = &key
	}

	total := decimal.Zero
	for i, line := range input.Items {
		flower := flowers[line.FlowerId]
		price := line.UnitPrice.Decimal
		if !line.UnitPrice.Valid {
			if !flower.SellingPrice.Valid {
				return nil, validationError(describeLine(i)+".unit_price", "is required because %s has no selling price", flower.Name)
			}
			price = flower.SellingPrice.Decimal
			if err := checkUnitPrice(describeLine(i), price); err != nil {
				return nil, err
			}
		}
		subtotal := lineSubtotal(line.Quantity, price)
		total = total.Add(subtotal)
		sale.Items = append(sale.Items, SaleItem{
			ID:         uuid.New(),
			SaleId:     sale.ID,
			LineNo:     i + 1,
			FlowerId:   line.FlowerId,
			Quantity:   line.Quantity,
			UnitPrice:  price,
			Subtotal:   subtotal,
			FlowerName: flower.Name,
		})
	}
	sale.TotalAmount = total
	return sale, nil
}

// itemsInLockOrder sorts by flower id so concurrent sales take row locks in the same order.
func itemsInLockOrder(items []SaleItem) []SaleItem {
	ordered := make([]SaleItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].FlowerId.String() < ordered[j].FlowerId.String()
	})
	return ordered
}

func recordedByFromContext(ctx context.Context) *int {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil
	}
	return &userId
}

// lockIdempotencyKey serializes submissions sharing a key. Redis being absent or busy is not fatal;
// the unique index on sales.idempotency_key still rejects the second insert.
func (s *SaleService) lockIdempotencyKey(ctx context.Context, key string) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	lock, err := locker.Obtain(ctx, "lock:sale:"+key, config.IdempotencyLockTTL(), &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"field":           "SaleService.lockIdempotencyKey",
			"idempotency_key": key,
		}).Warn("proceeding without redis lock: " + err.Error())
		return func() {}
	}
	return func() {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			s.logger.WithFields(logrus.Fields{
				"field":           "SaleService.lockIdempotencyKey",
				"idempotency_key": key,
			}).Warn("failed to release redis lock: " + err.Error())
		}
	}
}
