package models_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/models"
	"github.com/mmdatafocus/florist_backend/models/memstore"
	"github.com/mmdatafocus/florist_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newServices(store models.Store) (*models.SaleService, *models.StockLedger) {
	logger := quietLogger()
	ledger := models.NewStockLedger(store, logger)
	return models.NewSaleService(store, ledger, logger), ledger
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func seedFlower(store *memstore.Store, name string, stock int, sellingPrice string) models.Flower {
	f := models.Flower{Name: name, CurrentStock: stock, ReorderLevel: 10}
	if sellingPrice != "" {
		f.SellingPrice = price(sellingPrice)
	}
	return store.AddFlower(f)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func TestRecordSale_SingleItemDecrementsStockAndLogsMovement(t *testing.T) {
	store := memstore.New()
	roses := seedFlower(store, "Roses", 20, "")
	sales, ledger := newServices(store)

	sale, replayed, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items:         []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 5, UnitPrice: price("2.50")}},
		PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assertDecimal(t, "12.50", sale.TotalAmount)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Roses", sale.Items[0].FlowerName)
	assertDecimal(t, "12.50", sale.Items[0].Subtotal)
	assert.Equal(t, 1, sale.Items[0].LineNo)

	stored, _ := store.Flower(roses.ID)
	assert.Equal(t, 15, stored.CurrentStock)

	movements, err := ledger.Movements(context.Background(), roses.ID, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, models.MovementTypeSale, movements[0].MovementType)
	assert.Equal(t, -5, movements[0].Quantity)
	require.NotNil(t, movements[0].ReferenceId)
	assert.Equal(t, sale.ID, *movements[0].ReferenceId)
	assert.Equal(t, "Sale #"+sale.ID.String()[:8], movements[0].Notes)
}

func TestRecordSale_MultiItemTotal(t *testing.T) {
	store := memstore.New()
	tulips := seedFlower(store, "Tulips", 10, "")
	lilies := seedFlower(store, "Lilies", 8, "")
	sales, _ := newServices(store)

	sale, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{
			{FlowerId: tulips.ID, Quantity: 3, UnitPrice: price("4.00")},
			{FlowerId: lilies.ID, Quantity: 2, UnitPrice: price("6.50")},
		},
		PaymentMethod: models.PaymentMethodCard,
	})
	require.NoError(t, err)
	assertDecimal(t, "25.00", sale.TotalAmount)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, tulips.ID, sale.Items[0].FlowerId)
	assert.Equal(t, lilies.ID, sale.Items[1].FlowerId)

	sum := decimal.Zero
	for _, item := range sale.Items {
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, sum.Equal(sale.TotalAmount))

	storedTulips, _ := store.Flower(tulips.ID)
	storedLilies, _ := store.Flower(lilies.ID)
	assert.Equal(t, 7, storedTulips.CurrentStock)
	assert.Equal(t, 6, storedLilies.CurrentStock)
	_, items, movements := store.Counts()
	assert.Equal(t, 2, items)
	assert.Equal(t, 2, movements)
}

func TestRecordSale_InsufficientStockWritesNothing(t *testing.T) {
	store := memstore.New()
	orchids := seedFlower(store, "Orchids", 2, "")
	sales, _ := newServices(store)

	_, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{{FlowerId: orchids.ID, Quantity: 3, UnitPrice: price("10.00")}},
	})
	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, orchids.ID, stockErr.FlowerId)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 1, stockErr.Shortfall())
	assert.Equal(t, "insufficient_stock", models.ErrorKind(err))

	stored, _ := store.Flower(orchids.ID)
	assert.Equal(t, 2, stored.CurrentStock)
	salesCount, items, movements := store.Counts()
	assert.Zero(t, salesCount)
	assert.Zero(t, items)
	assert.Zero(t, movements)
}

func TestRecordSale_RepeatedFlowerLinesAreCheckedTogether(t *testing.T) {
	store := memstore.New()
	peonies := seedFlower(store, "Peonies", 10, "")
	sales, _ := newServices(store)

	_, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{
			{FlowerId: peonies.ID, Quantity: 6, UnitPrice: price("3")},
			{FlowerId: peonies.ID, Quantity: 6, UnitPrice: price("3")},
		},
	})
	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 12, stockErr.Requested)
	assert.Equal(t, 10, stockErr.Available)

	stored, _ := store.Flower(peonies.ID)
	assert.Equal(t, 10, stored.CurrentStock)
}

func TestRecordSale_ValidationErrors(t *testing.T) {
	store := memstore.New()
	roses := seedFlower(store, "Roses", 20, "")
	sales, _ := newServices(store)

	cases := []struct {
		name  string
		input *models.NewSale
		field string
	}{
		{"nil sale", nil, ""},
		{"no items", &models.NewSale{PaymentMethod: models.PaymentMethodCash}, "items"},
		{"zero quantity", &models.NewSale{Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 0, UnitPrice: price("1")}}}, "items[0].quantity"},
		{"negative quantity", &models.NewSale{Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: -2, UnitPrice: price("1")}}}, "items[0].quantity"},
		{"missing flower id", &models.NewSale{Items: []models.NewSaleItem{{Quantity: 1, UnitPrice: price("1")}}}, "items[0].flower_id"},
		{"negative price", &models.NewSale{Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 1, UnitPrice: price("-0.01")}}}, "items[0].unit_price"},
		{"too many decimals", &models.NewSale{Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 1, UnitPrice: price("1.23456")}}}, "items[0].unit_price"},
		{"bad payment method", &models.NewSale{Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 1, UnitPrice: price("1")}}, PaymentMethod: "barter"}, "payment_method"},
		{"bad phone", &models.NewSale{Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 1, UnitPrice: price("1")}}, CustomerPhone: "12"}, "customer_phone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := sales.RecordSale(context.Background(), tc.input)
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, "validation", models.ErrorKind(err))
		})
	}

	stored, _ := store.Flower(roses.ID)
	assert.Equal(t, 20, stored.CurrentStock)
	salesCount, _, movements := store.Counts()
	assert.Zero(t, salesCount)
	assert.Zero(t, movements)
}

func TestRecordSale_UnknownFlower(t *testing.T) {
	store := memstore.New()
	roses := seedFlower(store, "Roses", 20, "")
	sales, _ := newServices(store)
	missing := uuid.New()

	_, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{
			{FlowerId: roses.ID, Quantity: 1, UnitPrice: price("2")},
			{FlowerId: missing, Quantity: 1, UnitPrice: price("2")},
		},
	})
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, missing.String(), nf.Id)

	stored, _ := store.Flower(roses.ID)
	assert.Equal(t, 20, stored.CurrentStock)
}

func TestRecordSale_IgnoresClientTotal(t *testing.T) {
	store := memstore.New()
	roses := seedFlower(store, "Roses", 20, "")
	sales, _ := newServices(store)

	sale, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items:       []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 4, UnitPrice: price("1.25")}},
		TotalAmount: price("999.99"),
	})
	require.NoError(t, err)
	assertDecimal(t, "5", sale.TotalAmount)
}

func TestRecordSale_DefaultsToSellingPrice(t *testing.T) {
	store := memstore.New()
	daisies := seedFlower(store, "Daisies", 30, "1.75")
	ferns := seedFlower(store, "Ferns", 30, "")
	sales, _ := newServices(store)

	sale, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{{FlowerId: daisies.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assertDecimal(t, "1.75", sale.Items[0].UnitPrice)
	assertDecimal(t, "7", sale.TotalAmount)
	assert.Equal(t, models.PaymentMethodCash, sale.PaymentMethod)

	_, _, err = sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{{FlowerId: ferns.ID, Quantity: 1}},
	})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "items[0].unit_price", ve.Field)
	stored, _ := store.Flower(ferns.ID)
	assert.Equal(t, 30, stored.CurrentStock)
}

func TestRecordSale_NormalizesCustomerPhone(t *testing.T) {
	t.Setenv("DEFAULT_PHONE_REGION", "US")
	store := memstore.New()
	roses := seedFlower(store, "Roses", 20, "")
	sales, _ := newServices(store)

	sale, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items:         []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 1, UnitPrice: price("2")}},
		CustomerName:  "  Ada  ",
		CustomerPhone: "(650) 253-0000",
		PaymentMethod: "Mobile",
	})
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", sale.CustomerPhone)
	assert.Equal(t, "Ada", sale.CustomerName)
	assert.Equal(t, models.PaymentMethodMobile, sale.PaymentMethod)
}

func TestRecordSale_RecordsUserFromContext(t *testing.T) {
	store := memstore.New()
	roses := seedFlower(store, "Roses", 20, "")
	sales, _ := newServices(store)

	ctx := utils.SetUserIdInContext(context.Background(), 42)
	sale, _, err := sales.RecordSale(ctx, &models.NewSale{
		Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 1, UnitPrice: price("2")}},
	})
	require.NoError(t, err)
	require.NotNil(t, sale.RecordedByUserId)
	assert.Equal(t, 42, *sale.RecordedByUserId)
}

func TestRecordSale_ConcurrentSalesNeverOversell(t *testing.T) {
	store := memstore.New()
	roses := seedFlower(store, "Roses", 10, "")
	sales, _ := newServices(store)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = sales.RecordSale(context.Background(), &models.NewSale{
				Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 6, UnitPrice: price("2")}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *models.InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
	}
	assert.Equal(t, 1, succeeded)
	stored, _ := store.Flower(roses.ID)
	assert.Equal(t, 4, stored.CurrentStock)
}

// faultyStore fails the nth movement append, or the whole transaction when txErr is set.
type faultyStore struct {
	*memstore.Store
	failMovementAt int
	txErr          error
}

func (f *faultyStore) Transaction(ctx context.Context, fn func(tx models.StoreTx) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return f.Store.Transaction(ctx, func(tx models.StoreTx) error {
		return fn(&faultyTx{StoreTx: tx, failAt: f.failMovementAt})
	})
}

type faultyTx struct {
	models.StoreTx
	failAt    int
	movements int
}

func (t *faultyTx) AppendMovement(m *models.StockMovement) error {
	t.movements++
	if t.movements == t.failAt {
		return errors.New("disk full")
	}
	return t.StoreTx.AppendMovement(m)
}

func TestRecordSale_FailureMidwayRollsBackEverything(t *testing.T) {
	mem := memstore.New()
	tulips := seedFlower(mem, "Tulips", 10, "")
	lilies := seedFlower(mem, "Lilies", 8, "")
	store := &faultyStore{Store: mem, failMovementAt: 2}
	sales, _ := newServices(store)

	_, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{
			{FlowerId: tulips.ID, Quantity: 3, UnitPrice: price("4.00")},
			{FlowerId: lilies.ID, Quantity: 2, UnitPrice: price("6.50")},
		},
	})
	var fault *models.StorageFault
	require.ErrorAs(t, err, &fault)
	assert.EqualError(t, errors.Unwrap(err), "disk full")

	storedTulips, _ := mem.Flower(tulips.ID)
	storedLilies, _ := mem.Flower(lilies.ID)
	assert.Equal(t, 10, storedTulips.CurrentStock)
	assert.Equal(t, 8, storedLilies.CurrentStock)
	salesCount, items, movements := mem.Counts()
	assert.Zero(t, salesCount)
	assert.Zero(t, items)
	assert.Zero(t, movements)
}

func TestRecordSale_StoreUnavailableIsStorageFault(t *testing.T) {
	mem := memstore.New()
	roses := seedFlower(mem, "Roses", 10, "")
	sales, _ := newServices(&faultyStore{Store: mem, txErr: errors.New("connection refused")})

	_, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 1, UnitPrice: price("2")}},
	})
	assert.Equal(t, "storage_fault", models.ErrorKind(err))
}

func TestRecordSale_IdempotencyKeyReplaysSale(t *testing.T) {
	store := memstore.New()
	roses := seedFlower(store, "Roses", 10, "")
	sales, _ := newServices(store)

	input := func() *models.NewSale {
		return &models.NewSale{
			Items:          []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 2, UnitPrice: price("2")}},
			IdempotencyKey: "till-1-0001",
		}
	}
	first, replayed, err := sales.RecordSale(context.Background(), input())
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := sales.RecordSale(context.Background(), input())
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "Roses", second.Items[0].FlowerName)

	stored, _ := store.Flower(roses.ID)
	assert.Equal(t, 8, stored.CurrentStock)
	salesCount, _, movements := store.Counts()
	assert.Equal(t, 1, salesCount)
	assert.Equal(t, 1, movements)
}

// racedTx lets another till commit a sale of the same flower between this
// transaction's stock check and its decrement.
type racedTx struct {
	models.StoreTx
	flowerId  uuid.UUID
	remaining int
	raced     bool
}

func (t *racedTx) GetFlower(id uuid.UUID) (*models.Flower, error) {
	flower, err := t.StoreTx.GetFlower(id)
	if err != nil || !t.raced || id != t.flowerId {
		return flower, err
	}
	current := *flower
	current.CurrentStock = t.remaining
	return &current, nil
}

func (t *racedTx) DecrementStockIfAvailable(id uuid.UUID, quantity int) (bool, error) {
	if id != t.flowerId {
		return t.StoreTx.DecrementStockIfAvailable(id, quantity)
	}
	t.raced = true
	return t.remaining >= quantity, nil
}

type racedStore struct {
	*memstore.Store
	flowerId  uuid.UUID
	remaining int
}

func (r *racedStore) Transaction(ctx context.Context, fn func(tx models.StoreTx) error) error {
	return r.Store.Transaction(ctx, func(tx models.StoreTx) error {
		return fn(&racedTx{StoreTx: tx, flowerId: r.flowerId, remaining: r.remaining})
	})
}

func TestRecordSale_LostRaceReportsCommittedStock(t *testing.T) {
	mem := memstore.New()
	roses := seedFlower(mem, "Roses", 10, "")
	sales, _ := newServices(&racedStore{Store: mem, flowerId: roses.ID, remaining: 4})

	_, _, err := sales.RecordSale(context.Background(), &models.NewSale{
		Items: []models.NewSaleItem{{FlowerId: roses.ID, Quantity: 6, UnitPrice: price("2")}},
	})
	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, roses.ID, stockErr.FlowerId)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 4, stockErr.Available)
	assert.Equal(t, 2, stockErr.Shortfall())

	salesCount, items, movements := mem.Counts()
	assert.Zero(t, salesCount)
	assert.Zero(t, items)
	assert.Zero(t, movements)
}
