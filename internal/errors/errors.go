// Package errors provides centralized error code definitions for thunk.
// Every fatal condition the pipeline can raise carries one of these codes so
// that tooling and tests can distinguish failure kinds without parsing
// prose messages.
package errors

// Error code constants organized by pipeline phase. The lexer itself never
// fails (it emits an ILLEGAL token the parser reports as PAR002), so the
// taxonomy starts at the parser.
const (
	// ============================================================================
	// Parser errors (PAR###)
	// ============================================================================

	// PAR001 indicates an unexpected token was encountered during parsing.
	PAR001 = "PAR001"

	// PAR002 indicates an unterminated literal or an illegal character in
	// the input stream.
	PAR002 = "PAR002"

	// PAR003 indicates an unsupported left operator section, e.g. "(x -)".
	PAR003 = "PAR003"

	// ============================================================================
	// Type errors (TYP###)
	// ============================================================================

	// TYP001 indicates an undefined identifier or constructor.
	TYP001 = "TYP001"

	// TYP002 indicates a unification failure from a name or arity mismatch.
	TYP002 = "TYP002"

	// TYP003 indicates a unification failure from the occurs check.
	TYP003 = "TYP003"

	// TYP004 indicates a unification failure from a missing class instance.
	TYP004 = "TYP004"

	// TYP005 indicates a type declaration with no matching binding.
	TYP005 = "TYP005"

	// ============================================================================
	// Compiler errors (CMP###)
	// ============================================================================

	// CMP001 indicates any compilation failure: a reference to an undefined
	// or duplicate global, an unresolvable class dictionary or instance, or
	// an internal compiler error.
	CMP001 = "CMP001"

	// ============================================================================
	// VM errors (VM###)
	// ============================================================================

	// VM001 indicates an instruction found a heap node of the wrong kind.
	VM001 = "VM001"

	// VM002 indicates a case expression matched no alternative at runtime.
	VM002 = "VM002"

	// VM003 indicates a missing or non-nullary "main" super-combinator.
	VM003 = "VM003"
)
