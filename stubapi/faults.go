package stubapi

import (
	"net/http"
	"sync"
	"time"
)

// Faults makes the stub fail mutations on demand so rollback paths can be
// exercised end to end.
type Faults struct {
	mu    sync.Mutex
	count int
	code  int
	delay time.Duration
}

// Inject fails the next n mutations with code. A code of zero means 500.
func (f *Faults) Inject(n, code int) {
	if code == 0 {
		code = http.StatusInternalServerError
	}
	f.mu.Lock()
	f.count = n
	f.code = code
	f.mu.Unlock()
}

// SetDelay slows down every mutation.
func (f *Faults) SetDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

// next consumes one injected failure. It returns 0 when the request should
// go through.
func (f *Faults) next() (code int, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delay = f.delay
	if f.count <= 0 {
		return 0, delay
	}
	f.count--
	return f.code, delay
}
