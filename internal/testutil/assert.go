// Package testutil holds small assertion helpers shared by table-driven tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertEqual reports a failure when want and got differ.
func AssertEqual(t testing.TB, want, got any) {
	t.Helper()
	assert.Equal(t, want, got)
}

// AssertNoError stops the test when err is non-nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	require.NoError(t, err)
}

// AssertError stops the test when err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	require.Error(t, err)
}
