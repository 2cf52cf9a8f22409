package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplymatch/internal"
)

var supplierNames = []string{"Acme Co", "Beta Ltd"}

func TestSupplierResolverReturnsCatalogName(t *testing.T) {
	m := answer("Acme Co")
	got, err := NewSupplierResolver(m).Resolve(context.Background(), "ACME Construction Pty", supplierNames)
	require.NoError(t, err)
	assert.Equal(t, "Acme Co", got)
	assert.Equal(t, [][]string{supplierNames}, m.labels)
}

func TestSupplierResolverNoMatch(t *testing.T) {
	_, err := NewSupplierResolver(noMatch()).Resolve(context.Background(), "Gamma Pty", supplierNames)
	require.ErrorIs(t, err, internal.ErrSupplierUnresolved)
	assert.NotErrorIs(t, err, internal.ErrMatcherUnavailable)
}

func TestSupplierResolverEmptyListSkipsMatcher(t *testing.T) {
	m := answer("Acme Co")
	_, err := NewSupplierResolver(m).Resolve(context.Background(), "Acme", nil)
	require.ErrorIs(t, err, internal.ErrSupplierUnresolved)
	assert.Zero(t, m.calls.Load())
}

func TestSupplierResolverRejectsAnswersOutsideList(t *testing.T) {
	answers := []string{"Acme", "acme co", "Acme Co ", "Acme Co Ltd", "Gamma Pty", "Beta", "ACME CO", "Acme Co.", "1"}
	for _, a := range answers {
		t.Run(a, func(t *testing.T) {
			_, err := NewSupplierResolver(answer(a)).Resolve(context.Background(), "Acme", supplierNames)
			require.ErrorIs(t, err, internal.ErrSupplierUnresolved)

			var se *internal.SupplierError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, a, se.Answer)
		})
	}
}

func TestSupplierResolverPropagatesMatcherFailure(t *testing.T) {
	m := &countingMatcher{fn: func(context.Context, string, []string) (string, bool, error) {
		return "", false, &internal.MatcherError{Provider: "fake", Err: errors.New("timeout")}
	}}
	_, err := NewSupplierResolver(m).Resolve(context.Background(), "Acme", supplierNames)
	require.ErrorIs(t, err, internal.ErrMatcherUnavailable)
	assert.NotErrorIs(t, err, internal.ErrSupplierUnresolved)
}
