package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/gstbill-io/gstbill-backend/pkg/db"
	"github.com/gstbill-io/gstbill-backend/pkg/db/models"
	"github.com/gstbill-io/gstbill-backend/pkg/enums"
	pkgerrors "github.com/gstbill-io/gstbill-backend/pkg/errors"
)

func TestRecordMovementIn(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	product := mustCreateTestProduct(t, db, 10)

	qty, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: product.ID,
		Type:      enums.MovementTypeIn,
		Quantity:  5,
		Reference: "PO-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 15 {
		t.Fatalf("expected quantity 15, got %d", qty)
	}
	assertMovementCount(t, db, product.ID, 1)
}

func TestRecordMovementOutStrictInsufficient(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	product := mustCreateTestProduct(t, db, 3)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: product.ID,
		Type:      enums.MovementTypeOut,
		Quantity:  4,
		Strict:    true,
	})
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	typed := pkgerrors.As(err)
	if typed.Details() == nil {
		t.Fatal("expected details carrying product and available quantity")
	}
	details := typed.Details().(map[string]any)
	if details["available"] != 3 {
		t.Fatalf("expected available=3, got %v", details["available"])
	}

	// nothing deducted, nothing recorded
	assertQuantity(t, db, product.ID, 3)
	assertMovementCount(t, db, product.ID, 0)
}

func TestRecordMovementOutLenientGoesNegative(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	product := mustCreateTestProduct(t, db, 2)

	qty, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: product.ID,
		Type:      enums.MovementTypeOut,
		Quantity:  5,
		Notes:     "backorder",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != -3 {
		t.Fatalf("expected backorder quantity -3, got %d", qty)
	}
}

func TestRecordMovementAdjustmentSetsAbsolute(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	product := mustCreateTestProduct(t, db, 42)

	qty, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: product.ID,
		Type:      enums.MovementTypeAdjustment,
		Quantity:  7,
		Notes:     "stocktake",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 7 {
		t.Fatalf("expected quantity 7, got %d", qty)
	}
}

func TestRecordMovementValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	product := mustCreateTestProduct(t, db, 10)

	cases := []MovementInput{
		{ProductID: uuid.Nil, Type: enums.MovementTypeIn, Quantity: 1},
		{ProductID: product.ID, Type: "sideways", Quantity: 1},
		{ProductID: product.ID, Type: enums.MovementTypeOut, Quantity: 0},
		{ProductID: product.ID, Type: enums.MovementTypeIn, Quantity: -2},
	}
	for _, input := range cases {
		if _, err := svc.RecordMovement(context.Background(), input); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestRecordMovementUnknownProduct(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: uuid.New(),
		Type:      enums.MovementTypeIn,
		Quantity:  1,
	})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestReserveThenReleaseIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	product := mustCreateTestProduct(t, db, 10)

	lines := []ReservationLine{{ProductID: product.ID, Quantity: 4}}
	if err := svc.ReserveForInvoice(context.Background(), db, lines, "INV-001-1000"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	assertQuantity(t, db, product.ID, 6)

	items := []models.InvoiceItem{{ProductID: product.ID, Quantity: 4}}
	if err := svc.ReleaseForInvoice(context.Background(), db, items, "INV-001-1000"); err != nil {
		t.Fatalf("release: %v", err)
	}
	assertQuantity(t, db, product.ID, 10)

	var movements []models.StockMovement
	if err := db.Where("product_id = ?", product.ID).Order("created_at ASC").Find(&movements).Error; err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected reserve and release rows, got %d", len(movements))
	}
	if movements[0].Reference != "INV-001-1000" {
		t.Fatalf("unexpected reserve reference %q", movements[0].Reference)
	}
	if movements[1].Reference != "Reversal of INV-001-1000" {
		t.Fatalf("unexpected release reference %q", movements[1].Reference)
	}
}

func TestReserveForInvoiceFailsAtomically(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	plenty := mustCreateTestProduct(t, db, 100)
	scarce := mustCreateTestProduct(t, db, 1)

	lines := []ReservationLine{
		{ProductID: plenty.ID, Quantity: 5},
		{ProductID: scarce.ID, Quantity: 2},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ReserveForInvoice(context.Background(), tx, lines, "INV-001-1001")
	})
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// rollback undid the first line's deduction
	assertQuantity(t, db, plenty.ID, 100)
	assertQuantity(t, db, scarce.ID, 1)
	assertMovementCount(t, db, plenty.ID, 0)
}

func TestListMovementsFilters(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	tenantID := uuid.New()
	product := mustCreateTenantProduct(t, db, tenantID, 10, 10)
	other := mustCreateTenantProduct(t, db, tenantID, 10, 10)
	foreign := mustCreateTestProduct(t, db, 10)

	for _, input := range []MovementInput{
		{ProductID: product.ID, Type: enums.MovementTypeIn, Quantity: 2},
		{ProductID: product.ID, Type: enums.MovementTypeOut, Quantity: 1},
		{ProductID: other.ID, Type: enums.MovementTypeIn, Quantity: 3},
		{ProductID: foreign.ID, Type: enums.MovementTypeIn, Quantity: 9},
	} {
		if _, err := svc.RecordMovement(context.Background(), input); err != nil {
			t.Fatalf("seed movement: %v", err)
		}
	}

	all, err := svc.ListMovements(context.Background(), MovementFilter{TenantID: tenantID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected the tenant's 3 movements only, got %d", len(all))
	}

	byProduct, err := svc.ListMovements(context.Background(), MovementFilter{TenantID: tenantID, ProductID: &product.ID})
	if err != nil {
		t.Fatalf("list by product: %v", err)
	}
	if len(byProduct) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(byProduct))
	}

	out := enums.MovementTypeOut
	byType, err := svc.ListMovements(context.Background(), MovementFilter{TenantID: tenantID, Type: &out})
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if len(byType) != 1 {
		t.Fatalf("expected 1 out movement, got %d", len(byType))
	}

	if _, err := svc.ListMovements(context.Background(), MovementFilter{}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without tenant, got %v", err)
	}
}

func TestRecordMovementLedgerFailureRollsBackQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	product := mustCreateTestProduct(t, db, 50)

	if err := db.Migrator().DropTable(&models.StockMovement{}); err != nil {
		t.Fatalf("drop movements table: %v", err)
	}

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		ProductID: product.ID,
		Type:      enums.MovementTypeIn,
		Quantity:  10,
		Reference: "PO-9",
	})
	if err == nil {
		t.Fatal("expected the movement to fail without its ledger table")
	}

	// the quantity update must roll back with the failed ledger insert
	assertQuantity(t, db, product.ID, 50)
}

func TestRecordMovementForeignTenantProduct(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	owner := uuid.New()
	product := mustCreateTenantProduct(t, db, owner, 50, 10)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		TenantID:  uuid.New(),
		ProductID: product.ID,
		Type:      enums.MovementTypeOut,
		Quantity:  50,
		Strict:    true,
	})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found for a foreign product, got %v", err)
	}

	assertQuantity(t, db, product.ID, 50)
	assertMovementCount(t, db, product.ID, 0)

	qty, err := svc.RecordMovement(context.Background(), MovementInput{
		TenantID:  owner,
		ProductID: product.ID,
		Type:      enums.MovementTypeOut,
		Quantity:  50,
		Strict:    true,
	})
	if err != nil {
		t.Fatalf("owning tenant must be able to move stock: %v", err)
	}
	if qty != 0 {
		t.Fatalf("expected quantity 0, got %d", qty)
	}
}

func TestListLowStock(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	tenantID := uuid.New()

	low := mustCreateTenantProduct(t, db, tenantID, 5, 10)
	mustCreateTenantProduct(t, db, tenantID, 50, 10)

	products, err := svc.ListLowStock(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].ID != low.ID {
		t.Fatalf("expected only the low product, got %d rows", len(products))
	}
	if !products[0].IsLowStock() {
		t.Fatal("IsLowStock must hold for returned products")
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(pkgdb.NewWithConn(db), NewRepository(db), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, quantity int) *models.Product {
	t.Helper()
	return mustCreateTenantProduct(t, tx, uuid.New(), quantity, 10)
}

func mustCreateTenantProduct(t *testing.T, tx *gorm.DB, tenantID uuid.UUID, quantity, minLevel int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		TenantID:      tenantID,
		SKU:           "SKU-" + uuid.NewString(),
		Name:          "Test Product",
		Price:         decimal.NewFromInt(100),
		GSTRate:       decimal.NewFromInt(18),
		StockQuantity: quantity,
		MinStockLevel: minLevel,
		Unit:          "PCS",
		IsActive:      true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func assertQuantity(t *testing.T, db *gorm.DB, productID uuid.UUID, want int) {
	t.Helper()
	var product models.Product
	if err := db.Where("id = ?", productID).First(&product).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.StockQuantity != want {
		t.Fatalf("expected quantity %d, got %d", want, product.StockQuantity)
	}
}

func assertMovementCount(t *testing.T, db *gorm.DB, productID uuid.UUID, want int64) {
	t.Helper()
	var count int64
	if err := db.Model(&models.StockMovement{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != want {
		t.Fatalf("expected %d movements, got %d", want, count)
	}
}
