// Package engine implements the travel policy rule engine.
//
// The engine evaluates a Context against an ordered set of configured
// rules and returns one Result per rule. Rules are a fixed enumeration of
// variants (advance booking, fare comparison, cabin class, and so on); each
// variant is a (type, params) pair dispatched through a single evaluate
// function rather than a polymorphic object.
//
// # Severity Semantics
//
// A rule carries a configured severity (blocking or advisory) that is only
// reported on failure. Passing results are always reported at info severity,
// which keeps the result set cardinality stable for auditing: a rule that
// lacks its required inputs returns a passing info result with an explanatory
// message instead of omitting itself.
//
// # Configuration
//
// Rule configuration is declarative YAML: a top-level "rules" mapping keyed
// by rule type, each value a mapping of type-specific parameters plus an
// optional "severity" override. Unknown rule types, unknown parameters, and
// missing required parameters are load-time configuration errors; nothing is
// silently defaulted except the per-type severity.
//
// # Determinism
//
// Evaluation is pure: given the same context and configuration the results
// are byte-for-byte reproducible. No rule reads the wall clock; the advance
// booking rule compares the booking and departure dates supplied by the
// caller.
package engine
