package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompensationManager_UnwindsInReverse(t *testing.T) {
	var order []string
	m := NewCompensationManager()
	for _, name := range []string{"one", "two", "three"} {
		m.Record(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, m.UnwindAll(context.Background()))
	require.Equal(t, []string{"three", "two", "one"}, order)
	require.Zero(t, m.Pending())
}

func TestCompensationManager_ContinuesPastFailures(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	m := NewCompensationManager()
	m.Record("one", func(context.Context) error { ran = append(ran, "one"); return nil })
	m.Record("two", func(context.Context) error { ran = append(ran, "two"); return boom })
	m.Record("three", func(context.Context) error { ran = append(ran, "three"); return nil })

	err := m.UnwindAll(context.Background())
	require.ErrorIs(t, err, ErrCompensationFailed)
	require.ErrorIs(t, err, boom)
	var cfe *CompensationFailureError
	require.ErrorAs(t, err, &cfe)
	require.Equal(t, []string{"two"}, cfe.FailedSteps())
	require.Equal(t, []string{"three", "two", "one"}, ran)
	require.Equal(t, 1, m.Pending())
}

func TestCompensationManager_SecondUnwindOnlyRetriesFailures(t *testing.T) {
	calls := map[string]int{}
	fail := true
	m := NewCompensationManager()
	m.Record("header", func(context.Context) error { calls["header"]++; return nil })
	m.Record("stock", func(context.Context) error {
		calls["stock"]++
		if fail {
			return errors.New("unavailable")
		}
		return nil
	})

	require.Error(t, m.UnwindAll(context.Background()))
	fail = false
	require.NoError(t, m.UnwindAll(context.Background()))
	require.NoError(t, m.UnwindAll(context.Background()))

	require.Equal(t, 1, calls["header"])
	require.Equal(t, 2, calls["stock"])
}

func TestCompensationManager_CommitAllForgets(t *testing.T) {
	called := false
	m := NewCompensationManager()
	m.Record("one", func(context.Context) error { called = true; return nil })
	m.CommitAll()

	require.NoError(t, m.UnwindAll(context.Background()))
	require.False(t, called)
	require.Zero(t, m.Pending())
}
