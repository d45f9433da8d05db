// Package errors provides coded, structured errors for the interactivity
// runtime and its tooling.
//
// Every failure the runtime reports, whether it is logged during hydration
// or printed by the CLI, carries a code from the registry:
//
//   - runtime: reactive and handler failures (E001-E009)
//   - hydration: document structure problems (E040-E049)
//   - directive: per-directive failures reported with the node's HID
//   - config: interactivity.json problems (E141-E142)
//   - cli: command and page source failures (E150)
//
// # Usage
//
//	err := errors.New(errors.CodeInvalidDirectiveValue).
//	    WithDetail(`data-wp-context on h3 is not a JSON object`).
//	    Wrap(jsonErr)
//
//	logger.Warn("directive failed", err.Attrs()...)
//	errors.PrintError(err)
//
// Errors created from a code match each other with errors.Is, so callers can
// test for a kind without caring about detail:
//
//	errors.Is(err, errors.New(errors.CodeHandlerThrow))
package errors
