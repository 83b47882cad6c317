package sessionfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fd1az/depositwatch/business/operator/app"
	"github.com/fd1az/depositwatch/internal/apperror"
)

func TestStore_MissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "session.json"))

	_, found, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("found = true for a file that does not exist")
	}
}

func TestStore_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewStore(path)

	want := app.Snapshot{
		Lang: "vi",
		Balances: map[string]app.BalanceSnapshot{
			"binance": {
				Total: "150.5",
				Transactions: []app.TransactionSnapshot{
					{Amount: "100", Time: "2024-06-01T10:00:00Z"},
					{Amount: "50.5", Time: "2024-06-01T11:00:00Z"},
				},
			},
		},
	}

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("found = false after Save")
	}

	if got.Lang != want.Lang {
		t.Errorf("Lang = %s, want %s", got.Lang, want.Lang)
	}
	b, ok := got.Balances["binance"]
	if !ok {
		t.Fatal("binance balance missing after roundtrip")
	}
	if b.Total != "150.5" {
		t.Errorf("Total = %s, want 150.5", b.Total)
	}
	if len(b.Transactions) != 2 {
		t.Errorf("Transactions = %d, want 2", len(b.Transactions))
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want just the session file", len(entries))
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "session.json"))

	if err := s.Save(app.Snapshot{Lang: "en"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(app.Snapshot{Lang: "vi"}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, _, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Lang != "vi" {
		t.Errorf("Lang = %s, want the second write vi", got.Lang)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := NewStore(path)
	_, _, err := s.Load()
	if err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if apperror.GetCode(err) != apperror.CodeSessionStoreFailed {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeSessionStoreFailed)
	}
}
