package renaming

import (
	"testing"

	"github.com/speakeasy-api/symrename/irep"
)

var i32 = irep.Int(32)

// expectViolation runs fn and returns the ContractViolation it panicked with.
func expectViolation(t *testing.T, fn func()) (cv *ContractViolation) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a contract violation, got none")
		}
		var ok bool
		cv, ok = AsContractViolation(r)
		if !ok {
			t.Fatalf("expected *ContractViolation, got %T: %v", r, r)
		}
	}()
	fn()
	return nil
}

// level1 returns sym renamed through a fresh frame table at frame 0.
func level1(sym *irep.Symbol) *irep.Symbol {
	fl := NewFrameLevel(0)
	fl.Install(sym, 0)
	return fl.Rename(sym).(*irep.Symbol)
}
