// Package expr evaluates the expression surface of workflow definitions:
// command templates ("make test DB=${matrix.db}") and step predicates
// ("failure || always").
//
// Both loaders hand these over as raw strings; this package parses them with
// the HCL syntax engine and evaluates them against a per-instance variable
// scope. The scope exposes:
//
//   - matrix.<axis>   the instance's matrix assignment
//   - env.<name>      the merged environment for the current step
//   - success         no prior step of the instance has hard-failed
//   - failure         some prior step has hard-failed
//   - cancelled       the run was cancelled while the instance was active
//   - always          constant true, for steps that must run regardless
package expr
