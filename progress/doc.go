// Package progress keeps aggregated counters describing the recompilation
// pipeline: how many jobs were submitted, how many are pending, compiling,
// waiting for installation, installed or failed.
package progress
