package compile

import (
	"sync"
	"time"
)

// DefaultTimeout applies when a request does not specify a deadline.
const DefaultTimeout = 5 * time.Second

// StartTimeout arms a deadline timer. The returned channel is closed
// once d has elapsed, unless cancel is called first. cancel is
// idempotent; after the first call the signal can no longer fire.
func StartTimeout(d time.Duration) (<-chan struct{}, func()) {
	if d <= 0 {
		d = DefaultTimeout
	}

	fired := make(chan struct{})
	timer := time.AfterFunc(d, func() { close(fired) })

	var once sync.Once
	cancel := func() {
		once.Do(func() { timer.Stop() })
	}
	return fired, cancel
}
