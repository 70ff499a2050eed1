// Package guard switches the process into test mode when imported for side effects, so
// command packages can be exercised without touching Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("NEWSROOM_TEST_MODE") == "" {
			_ = os.Setenv("NEWSROOM_TEST_MODE", "1")
		}
	})
}
