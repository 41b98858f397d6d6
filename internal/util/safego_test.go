// safego_test.go - Tests for the panic recovery helpers.
package util

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGoNormalExecution(t *testing.T) {
	var done sync.WaitGroup
	done.Add(1)
	executed := false

	SafeGo(func() {
		executed = true
		done.Done()
	})

	done.Wait()
	assert.True(t, executed, "SafeGo did not execute the function")
}

func TestSafeGoPanicRecovery(t *testing.T) {
	recovered := make(chan bool, 1)

	SafeGo(func() {
		defer func() { recovered <- true }()
		panic("test panic")
	})

	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		t.Fatal("SafeGo goroutine did not recover from panic within timeout")
	}
}

func TestRecover(t *testing.T) {
	t.Parallel()

	require.NoError(t, Recover(func() error { return nil }))

	sentinel := errors.New("boom")
	assert.Same(t, sentinel, Recover(func() error { return sentinel }))

	err := Recover(func() error { panic("kaboom") })
	require.Error(t, err)
	assert.Equal(t, "panic: kaboom", err.Error())

	err = Recover(func() error { panic(sentinel) })
	require.ErrorIs(t, err, sentinel)
}
