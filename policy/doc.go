// Package policy provides optional declarative rules deciding which functions
// are eligible for recompilation.
package policy
