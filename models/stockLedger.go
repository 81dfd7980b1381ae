package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMovementsLimit = 100
	maxMovementsLimit     = 500
)

var tracer = otel.Tracer("github.com/mmdatafocus/florist_backend/models")

// StockLedger owns the append-only history of stock changes.
type StockLedger struct {
	store  Store
	logger *logrus.Logger
}

func NewStockLedger(store Store, logger *logrus.Logger) *StockLedger {
	return &StockLedger{store: store, logger: logger}
}

// AppendMovement records one signed stock change inside tx. It never touches current_stock;
// the caller applies the matching stock change in the same transaction.
func (l *StockLedger) AppendMovement(tx StoreTx, flowerId uuid.UUID, movementType MovementType, quantity int, referenceId *uuid.UUID, notes string) (*StockMovement, error) {
	if flowerId == uuid.Nil {
		return nil, validationError("flower_id", "is required")
	}
	if err := movementType.checkQuantity(quantity); err != nil {
		return nil, &ValidationError{Field: "quantity", Message: err.Error()}
	}
	movement := &StockMovement{
		ID:           uuid.New(),
		FlowerId:     flowerId,
		MovementType: movementType,
		Quantity:     quantity,
		ReferenceId:  referenceId,
		Notes:        notes,
	}
	if err := tx.AppendMovement(movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// RecordMovement applies a purchase, return or adjustment and logs it, atomically.
// Sales are rejected here; they go through SaleService.RecordSale.
func (l *StockLedger) RecordMovement(ctx context.Context, input *NewStockMovement) (movement *StockMovement, err error) {
	ctx, span := tracer.Start(ctx, "RecordStockMovement")
	defer func() {
		endSpan(span, err)
	}()

	if input == nil {
		return nil, validationError("", "movement is required")
	}
	input.MovementType = normalizeEnum(input.MovementType)
	if !input.MovementType.IsValid() {
		return nil, validationError("movement_type", "must be one of purchase, adjustment, return")
	}
	if input.MovementType == MovementTypeSale {
		return nil, validationError("movement_type", "sales must be recorded as a sale")
	}
	if err := input.MovementType.checkQuantity(input.Quantity); err != nil {
		return nil, &ValidationError{Field: "quantity", Message: err.Error()}
	}
	if input.FlowerId == uuid.Nil {
		return nil, validationError("flower_id", "is required")
	}
	span.SetAttributes(
		attribute.String("flower.id", input.FlowerId.String()),
		attribute.String("movement.type", string(input.MovementType)),
		attribute.Int("movement.quantity", input.Quantity),
	)

	err = l.store.Transaction(ctx, func(tx StoreTx) error {
		flower, err := tx.GetFlower(input.FlowerId)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return &NotFoundError{Resource: "flower", Id: input.FlowerId.String()}
		}
		if err != nil {
			return err
		}

		if input.Quantity > 0 {
			if err := tx.IncrementStock(flower.ID, input.Quantity); err != nil {
				return err
			}
		} else {
			ok, err := tx.DecrementStockIfAvailable(flower.ID, -input.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return &InsufficientStockError{
					FlowerId:   flower.ID,
					FlowerName: flower.Name,
					Requested:  -input.Quantity,
					Available:  flower.CurrentStock,
				}
			}
		}

		movement, err = l.AppendMovement(tx, flower.ID, input.MovementType, input.Quantity, input.ReferenceId, input.Notes)
		return err
	})
	if err != nil {
		return nil, asDomainError("record stock movement", err)
	}
	return movement, nil
}

// Movements lists a flower's ledger, newest first.
func (l *StockLedger) Movements(ctx context.Context, flowerId uuid.UUID, limit int) ([]*StockMovement, error) {
	if limit <= 0 {
		limit = defaultMovementsLimit
	}
	if limit > maxMovementsLimit {
		limit = maxMovementsLimit
	}
	movements, err := l.store.StockMovements(ctx, flowerId, limit)
	if err != nil {
		return nil, asDomainError("list stock movements", err)
	}
	if movements == nil {
		movements = []*StockMovement{}
	}
	return movements, nil
}

// Audit returns every flower whose stock differs from opening stock plus the sum of its movements.
func (l *StockLedger) Audit(ctx context.Context) ([]*LedgerMismatch, error) {
	totals, err := l.store.LedgerTotals(ctx)
	if err != nil {
		return nil, asDomainError("audit stock ledger", err)
	}
	mismatches := []*LedgerMismatch{}
	for _, t := range totals {
		if t.Consistent() {
			continue
		}
		mismatches = append(mismatches, &LedgerMismatch{
			FlowerId:     t.FlowerId,
			Name:         t.Name,
			CurrentStock: t.CurrentStock,
			Expected:     t.Expected(),
			Difference:   t.CurrentStock - t.Expected(),
		})
	}
	if len(mismatches) > 0 {
		l.logger.WithFields(logrus.Fields{
			"field":      "StockLedger.Audit",
			"mismatches": len(mismatches),
		}).Warn("stock ledger out of balance")
	}
	return mismatches, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
	}
	span.End()
}
