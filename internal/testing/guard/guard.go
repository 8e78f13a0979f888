package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ATELIER_TEST_MODE") == "" {
			_ = os.Setenv("ATELIER_TEST_MODE", "1")
		}
	})
}
