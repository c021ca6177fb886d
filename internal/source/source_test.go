package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadTransactions(t *testing.T) {
	csvData := `Transaction Date,Customer ID,Age,Gender,Item Purchased,Category,Quantity,Purchase Amount (THB),Cost Price (THB),Location,Shipping Type,Payment Method,Previous Purchases,Subscription Status,Frequency of Purchases,Campaign Name
2024-01-15,CUST001,28,Male,Oversized Tee,Tops,2,1190,540,Bangkok,Standard,Credit Card,3,Yes,Monthly,IG Story 01
bad-date,CUST002,35,Female,Cargo Pants,Bottoms,1,1590,700,Chiang Mai,Express,PromptPay,0,No,Quarterly,
`
	batch, err := Read(Transactions, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if batch.Source != Transactions {
		t.Errorf("Source mismatch: %s", batch.Source)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(batch.Rows))
	}
	if len(batch.Fields) != 16 {
		t.Fatalf("Expected 16 semantic fields, got %d", len(batch.Fields))
	}

	// Values must pass through verbatim, including the malformed date.
	row := batch.Rows[0]
	got := map[string]string{}
	for i, f := range batch.Fields {
		got[f] = row[i]
	}
	if got["transaction_date"] != "2024-01-15" {
		t.Errorf("transaction_date mismatch: %q", got["transaction_date"])
	}
	if got["item"] != "Oversized Tee" {
		t.Errorf("item mismatch: %q", got["item"])
	}
	if got["purchase_amount"] != "1190" {
		t.Errorf("purchase_amount mismatch: %q", got["purchase_amount"])
	}
	if got["campaign_name"] != "IG Story 01" {
		t.Errorf("campaign_name mismatch: %q", got["campaign_name"])
	}

	if batch.Rows[1][0] != "bad-date" {
		t.Errorf("malformed date should pass through, got %q", batch.Rows[1][0])
	}
}

func TestReadMissingColumnIsSchemaMismatch(t *testing.T) {
	// No campaign name column: structural break, must be fatal.
	csvData := `date,campaign_name,spend,impressions,clicks
2024-01-15,IG Story 01,500,10000,120
`
	_, err := Read(Spend, strings.NewReader(csvData))
	if err == nil {
		t.Fatal("Expected schema mismatch error, got nil")
	}

	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected SchemaMismatchError, got %T: %v", err, err)
	}
	if mismatch.Source != Spend {
		t.Errorf("Source mismatch: %s", mismatch.Source)
	}
	if len(mismatch.Missing) != 1 || mismatch.Missing[0] != "observed_ctr" {
		t.Errorf("Missing columns mismatch: %v", mismatch.Missing)
	}
}

func TestReadExtraColumnsIgnored(t *testing.T) {
	csvData := `promo_code,promo_type,discount_pct,description,internal_notes
SUMMER10,percent,10,Summer sale,ignore me
`
	batch, err := Read(Promotions, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(batch.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(batch.Rows))
	}
	if len(batch.Rows[0]) != 4 {
		t.Errorf("Expected 4 fields, got %d", len(batch.Rows[0]))
	}
	if batch.Rows[0][0] != "SUMMER10" {
		t.Errorf("promo_code mismatch: %q", batch.Rows[0][0])
	}
}

func TestReadHeaderAliases(t *testing.T) {
	// Aliased and differently-cased headers must still resolve.
	csvData := `Date,Campaign,Ad Spend,Impressions,Clicks,CTR
2024-02-01,FB Feed 02,1200.50,45000,380,0.008444
`
	batch, err := Read(Spend, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	row := batch.Rows[0]
	if row[0] != "2024-02-01" {
		t.Errorf("spend_date mismatch: %q", row[0])
	}
	if row[2] != "1200.50" {
		t.Errorf("spend mismatch: %q", row[2])
	}
	if row[5] != "0.008444" {
		t.Errorf("observed_ctr mismatch: %q", row[5])
	}
}

func TestReadShortRecordsPad(t *testing.T) {
	csvData := `campaign_name,promo_code,start_date,end_date,budget
IG Story 01,SUMMER10,2024-01-01,2024-03-31,50000
FB Feed 02,
`
	batch, err := Read(Campaigns, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(batch.Rows))
	}
	short := batch.Rows[1]
	if short[0] != "FB Feed 02" {
		t.Errorf("campaign_name mismatch: %q", short[0])
	}
	for i := 2; i < len(short); i++ {
		if short[i] != "" {
			t.Errorf("field %d should be empty, got %q", i, short[i])
		}
	}
}

func TestReadUnknownSource(t *testing.T) {
	_, err := Read("clickstream", strings.NewReader("a,b\n1,2\n"))
	if err == nil {
		t.Error("Expected error for unknown source, got nil")
	}
}

func TestReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "promos.csv")
	content := "promo_code,promo_type,discount_pct,description\nNEW5,amount,5,Welcome offer\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	batch, err := ReadFile(Promotions, path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(batch.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(batch.Rows))
	}
}

func TestReadFileNotFound(t *testing.T) {
	_, err := ReadFile(Promotions, "/nonexistent/promos.csv")
	if err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestFields(t *testing.T) {
	for _, name := range []string{Transactions, Campaigns, Spend, Promotions} {
		fields, err := Fields(name)
		if err != nil {
			t.Fatalf("Fields(%s) failed: %v", name, err)
		}
		if len(fields) == 0 {
			t.Errorf("Fields(%s) returned empty", name)
		}
	}

	if _, err := Fields("unknown"); err == nil {
		t.Error("Expected error for unknown source")
	}
}
