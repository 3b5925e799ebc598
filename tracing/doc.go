// Package tracing wraps OpenTelemetry so that the worker loop, the installer
// and the shutdown drain can report spans without importing the upstream
// packages directly. Until Init or InitWithExporter is called every span is a
// no-op.
package tracing
