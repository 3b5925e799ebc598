// Package installer replaces a function's active code with the result of a
// completed job. It runs on the control goroutine only.
package installer
