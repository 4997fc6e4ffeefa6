//go:build integration

package google

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_Export(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	exp, err := New(ctx, Config{
		SpreadsheetID:      spreadsheetID,
		SheetName:          "Integration Transactions",
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
	if err != nil {
		t.Skipf("credentials not usable: %v", err)
	}

	ref, err := exp.Export(ctx, core.Transaction{
		ID:            time.Now().Unix(),
		Type:          core.Sale,
		Status:        core.StatusCompleted,
		TotalProducts: 1,
		TotalPrice:    decimal.RequireFromString("1.23"),
		Description:   "integration test",
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(ref, "Integration Transactions") {
		t.Errorf("unexpected ref %q", ref)
	}
}
