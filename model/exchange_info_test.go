package model

import "testing"

func TestSymbolInfo_RoundQtyFloorsToStepSize(t *testing.T) {
	info := SymbolInfo{Filters: SymbolFilters{StepSize: 0.001}}
	got := info.RoundQty(1.2345)
	want := 1.234
	if got < want-1e-9 || got > want+1e-9 {
		t.Errorf("RoundQty(1.2345) = %v, want ~%v", got, want)
	}
}

func TestSymbolInfo_RoundPriceFloorsToTickSize(t *testing.T) {
	info := SymbolInfo{Filters: SymbolFilters{TickSize: 0.5}}
	got := info.RoundPrice(100.7)
	want := 100.5
	if got < want-1e-9 || got > want+1e-9 {
		t.Errorf("RoundPrice(100.7) = %v, want ~%v", got, want)
	}
}

func TestSymbolInfo_RoundIsNoOpWhenStepIsZero(t *testing.T) {
	info := SymbolInfo{}
	if info.RoundQty(1.23456) != 1.23456 {
		t.Error("expected RoundQty to be a no-op when StepSize is 0")
	}
	if info.RoundPrice(100.1) != 100.1 {
		t.Error("expected RoundPrice to be a no-op when TickSize is 0")
	}
}

func TestSymbolInfo_MaxApplicableMinQty(t *testing.T) {
	info := SymbolInfo{Filters: SymbolFilters{MinQty: 0.01}}
	if got := info.MaxApplicableMinQty(); got != 0.01 {
		t.Errorf("MaxApplicableMinQty() = %v, want 0.01", got)
	}
}
