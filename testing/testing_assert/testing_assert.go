// Package testing_assert holds the small assertion helpers used across the
// package tests.
package testing_assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Assert fails the test if the condition is false.
func Assert(tb testing.TB, condition bool, msg string, v ...interface{}) {
	tb.Helper()
	require.Truef(tb, condition, msg, v...)
}

// Ok fails the test if an err is not nil.
func Ok(tb testing.TB, err error) {
	tb.Helper()
	require.NoError(tb, err)
}

// Equals fails the test if exp is not equal to act.
func Equals(tb testing.TB, exp, act interface{}) {
	tb.Helper()
	require.Equal(tb, exp, act)
}

// ErrorIs fails the test if err does not wrap target.
func ErrorIs(tb testing.TB, err, target error) {
	tb.Helper()
	require.ErrorIs(tb, err, target)
}
