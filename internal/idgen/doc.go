// Package idgen wraps the UUID generator so that job and event identifiers
// can be stubbed in tests. Callers should treat identifiers as opaque
// strings.
package idgen
