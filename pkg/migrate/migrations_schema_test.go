package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE tenants",
		"CREATE TABLE customers",
		"CREATE TABLE products",
		"CREATE TABLE customer_product_prices",
		"CREATE TABLE orders",
		"CREATE TABLE order_items",
		"CREATE TABLE invoices",
		"CREATE TABLE invoice_items",
		"CREATE TABLE stock_movements",
		"idx_tenant_invoice_number",
		"idx_tenant_order_number",
		"idx_customer_product_price",
		"idx_products_tenant_sku",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationFilenamesAreWellFormed(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			t.Errorf("unexpected non-sql file %q", name)
			continue
		}
		if len(name) < 15 || name[14] != '_' {
			t.Errorf("migration %q is not timestamp-prefixed", name)
		}
	}
}
