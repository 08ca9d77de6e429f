package pci_test

import (
	"testing"

	"github.com/hmachida/pcibus/pci"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := &pci.ConfigStore{}

	store.Set(3, 2, 0x40, 0xab)

	expected := byte(0xab)
	if actual := store.At(3, 2, 0x40); actual != expected {
		t.Fatalf("expected: %#x, actual: %#x", expected, actual)
	}

	// neighboring banks stay untouched
	if actual := store.At(3, 1, 0x40); actual != 0 {
		t.Fatalf("expected: 0, actual: %#x", actual)
	}

	if actual := store.At(2, 2, 0x40); actual != 0 {
		t.Fatalf("expected: 0, actual: %#x", actual)
	}
}

func TestStoreBankAliases(t *testing.T) {
	t.Parallel()

	store := &pci.ConfigStore{}

	bank := store.Bank(1, 0)
	if len(bank) != pci.NumRegisters {
		t.Fatalf("expected: %v, actual: %v", pci.NumRegisters, len(bank))
	}

	bank[0x10] = 0x5a

	if actual := store.At(1, 0, 0x10); actual != 0x5a {
		t.Fatalf("expected: %#x, actual: %#x", 0x5a, actual)
	}

	store.Set(1, 0, 0x10, 0xc3)

	if actual := bank[0x10]; actual != 0xc3 {
		t.Fatalf("expected: %#x, actual: %#x", 0xc3, actual)
	}
}

func TestStoreReset(t *testing.T) {
	t.Parallel()

	store := &pci.ConfigStore{}
	store.Set(0, 0, 0, 0xff)
	store.Set(31, 7, 255, 0xff)

	store.Reset()

	if actual := store.At(0, 0, 0); actual != 0 {
		t.Fatalf("expected: 0, actual: %#x", actual)
	}

	if actual := store.At(31, 7, 255); actual != 0 {
		t.Fatalf("expected: 0, actual: %#x", actual)
	}
}

func TestStoreOutOfRangePanics(t *testing.T) {
	t.Parallel()

	store := &pci.ConfigStore{}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range slot")
		}
	}()

	store.At(32, 0, 0)
}

func TestIndexValidity(t *testing.T) {
	t.Parallel()

	if !pci.Slot(31).Valid() || pci.Slot(32).Valid() {
		t.Fatal("slot validity boundary is wrong")
	}

	if !pci.Function(7).Valid() || pci.Function(8).Valid() {
		t.Fatal("function validity boundary is wrong")
	}
}
