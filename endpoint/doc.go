// Package endpoint exposes read-only recompiler diagnostics over HTTP:
// counters, worker statistics, jobs and installed artifacts.
package endpoint
