// Package testutil provides filesystem fixtures for roost tests.
//
// All helpers take a *testing.T and fail the test on error, so callers can
// build fixture trees without repetitive error handling.
package testutil
