package services

import "sync"

// fingerprintLocks serializes duplicate resolution per fingerprint within
// this process. The partial unique index on (fingerprint, college) remains
// the cross-process backstop.
type fingerprintLocks struct {
	mu    sync.Mutex
	locks map[string]*fingerprintLock
}

type fingerprintLock struct {
	mu   sync.Mutex
	refs int
}

func newFingerprintLocks() *fingerprintLocks {
	return &fingerprintLocks{
		locks: make(map[string]*fingerprintLock),
	}
}

// Lock acquires the mutex for a fingerprint, creating it on first use.
// The returned function releases the mutex and drops the entry once no
// goroutine holds or waits on it.
func (fl *fingerprintLocks) Lock(fingerprint string) func() {
	fl.mu.Lock()
	l, ok := fl.locks[fingerprint]
	if !ok {
		l = &fingerprintLock{}
		fl.locks[fingerprint] = l
	}
	l.refs++
	fl.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		fl.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(fl.locks, fingerprint)
		}
		fl.mu.Unlock()
	}
}
