// Package aggregates implements the multi-table write contracts from
// internal/domain/aggregates on top of the table repos. Every write method
// owns its transaction.
package aggregates
