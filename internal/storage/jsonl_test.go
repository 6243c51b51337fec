package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"yieldScope/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.jsonl")
	store := NewJsonlStorage(path)

	first := []model.AccrualResult{{MarketID: "0x01", BorrowAPY: 5.2, SupplyAPY: 4.1, Utilization: 88, Block: 10}}
	second := []model.AccrualResult{{MarketID: "0x02", BorrowAPY: 3.3, SupplyAPY: 1.2, Utilization: 40, Block: 10}}
	if err := store.PutAccrualResults(first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := store.PutAccrualResults(second); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if err := store.PutAccrualResults(nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var r model.AccrualResult
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		ids = append(ids, r.MarketID)
	}
	if len(ids) != 2 || ids[0] != "0x01" || ids[1] != "0x02" {
		t.Fatalf("unexpected lines: %v", ids)
	}
}

func TestJsonlWriterSourceYields(t *testing.T) {
	var buf bytes.Buffer
	store := NewJsonlWriter(&buf)

	err := store.PutSourceYields([]model.SourceYield{
		{Source: "kamino", Reserve: "USDC", SupplyAPY: 7.45, BorrowAPY: 9.21},
		{Source: "aave", SupplyAPY: 3.5, BorrowAPY: 5},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	want := `{"source":"kamino","reserve":"USDC","supply_apy":7.45,"borrow_apy":9.21}` + "\n" +
		`{"source":"aave","supply_apy":3.5,"borrow_apy":5}` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}
