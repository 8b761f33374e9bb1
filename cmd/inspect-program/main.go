package main

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/speakeasy-api/symrename/pkg/scenario"
)

// Prints the raw code stream of each scenario given on the command line,
// the same view the explorer decodes.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect-program SCENARIO...")
		os.Exit(2)
	}

	failed := false
	for _, path := range os.Args[1:] {
		fmt.Printf("\n=== %s ===\n", path)
		s, err := scenario.LoadFile(path)
		if err != nil {
			fmt.Printf("Load error: %v\n", err)
			failed = true
			continue
		}

		for name, sym := range s.Symbols.All() {
			scope := "local"
			if sym.Global {
				scope = "global"
			}
			fmt.Printf("  %-10s %-8s %s\n", name, sym.Typ, scope)
		}
		for _, label := range slices.Sorted(maps.Keys(s.Labels)) {
			fmt.Printf("  label %s -> %d\n", label, s.Labels[label])
		}

		rawCodes := s.Program.GetCodes()
		for i, rc := range rawCodes {
			op := getCodeOp(rc)
			val := getCodeValue(rc)
			fmt.Printf("%3d: %-15s %v\n", i, opcodeToString(rc, op), val)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func getCodeOp(c any) int {
	if code, ok := c.(interface{ GetOp() int }); ok {
		return code.GetOp()
	}
	return -1
}

func getCodeValue(c any) any {
	if code, ok := c.(interface{ GetValue() any }); ok {
		return code.GetValue()
	}
	return nil
}

func opcodeToString(c any, op int) string {
	if code, ok := c.(interface{ OpString() string }); ok {
		return "op" + code.OpString()
	}
	return fmt.Sprintf("op%d", op)
}
