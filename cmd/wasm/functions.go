//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/speakeasy-api/symrename/pkg/playground"
	"github.com/speakeasy-api/symrename/pkg/scenario"
)

// DumpScenario compiles a scenario and returns its program listing.
func DumpScenario(src string) (string, error) {
	s, err := scenario.Load(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("failed to load scenario: %w", err)
	}
	var b strings.Builder
	if err := s.Program.Dump(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// promisify wraps a Go function to return a JavaScript Promise
func promisify(fn func(args []js.Value) (string, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		// Handler for the Promise
		handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) interface{} {
			resolve := promiseArgs[0]
			reject := promiseArgs[1]

			// Run this code asynchronously
			go func() {
				result, err := fn(args)
				if err != nil {
					errorConstructor := js.Global().Get("Error")
					errorObject := errorConstructor.New(err.Error())
					reject.Invoke(errorObject)
					return
				}

				resolve.Invoke(result)
			}()

			// The handler of a Promise doesn't return any value
			return nil
		})

		// Create and return the Promise object
		promiseConstructor := js.Global().Get("Promise")
		return promiseConstructor.New(handler)
	})
}

func main() {
	js.Global().Set("RunScenario", promisify(func(args []js.Value) (string, error) {
		if len(args) < 1 || len(args) > 2 {
			return "", fmt.Errorf("RunScenario: expected 1 or 2 args (scenarioYAML, query), got %v", len(args))
		}
		query := ""
		if len(args) == 2 {
			query = args[1].String()
		}
		return playground.RunJSON(context.Background(), args[0].String(), query)
	}))

	js.Global().Set("DumpScenario", promisify(func(args []js.Value) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("DumpScenario: expected 1 arg (scenarioYAML), got %v", len(args))
		}
		return DumpScenario(args[0].String())
	}))

	js.Global().Set("FormatQuery", promisify(func(args []js.Value) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("FormatQuery: expected 1 arg (query), got %v", len(args))
		}
		return playground.FormatQuery(args[0].String())
	}))

	// Keep the program running
	<-make(chan bool)
}
