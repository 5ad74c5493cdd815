// Package lock provides per-wallet locking for player mutations and
// single-flight guards for batch jobs.
package lock

import (
	"context"
	"sync"
	"time"
)

// walletMutex wraps a mutex with reference counting for cleanup.
type walletMutex struct {
	mu       sync.Mutex
	refCount int
}

// WalletLock serializes read-modify-write updates of a single player row,
// e.g. a session end racing a skin purchase for the same wallet.
type WalletLock struct {
	locks sync.Map // map[string]*walletMutex
	pool  sync.Pool
}

// NewWalletLock creates a new WalletLock instance.
func NewWalletLock() *WalletLock {
	return &WalletLock{
		pool: sync.Pool{
			New: func() any {
				return &walletMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given wallet.
func (wl *WalletLock) getLock(wallet string) *walletMutex {
	if v, ok := wl.locks.Load(wallet); ok {
		return v.(*walletMutex)
	}

	newLock := wl.pool.Get().(*walletMutex)
	newLock.refCount = 0

	actual, loaded := wl.locks.LoadOrStore(wallet, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		wl.pool.Put(newLock)
	}
	return actual.(*walletMutex)
}

// Lock acquires the lock for a wallet.
func (wl *WalletLock) Lock(wallet string) {
	lock := wl.getLock(wallet)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a wallet.
func (wl *WalletLock) Unlock(wallet string) {
	if v, ok := wl.locks.Load(wallet); ok {
		lock := v.(*walletMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// LockWithTimeout attempts to acquire the lock with a timeout.
// Returns true if the lock was acquired, false if timeout occurred.
func (wl *WalletLock) LockWithTimeout(ctx context.Context, wallet string, timeout time.Duration) bool {
	lock := wl.getLock(wallet)

	done := make(chan struct{})
	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		lock.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine still acquires eventually; release it then.
		go func() {
			<-done
			lock.mu.Unlock()
		}()
		return false
	}
}

// WithLockContext executes fn while holding the wallet's lock. A positive
// timeout bounds the wait and yields ErrLockTimeout; zero waits as long as it
// takes. fn is not called when ctx is already done.
func (wl *WalletLock) WithLockContext(ctx context.Context, wallet string, timeout time.Duration, fn func() error) error {
	if timeout > 0 {
		if !wl.LockWithTimeout(ctx, wallet, timeout) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrLockTimeout
		}
	} else {
		wl.Lock(wallet)
	}
	defer wl.Unlock(wallet)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
