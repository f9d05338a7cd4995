// Package retry provides a bounded fixed-backoff wrapper around a single
// network operation. Both thrown transport errors and application-level
// rejections consume attempts from the same budget.
package retry
