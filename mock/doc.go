// Package mock provides function-field mock implementations of the
// docextract interfaces for testing.
package mock
