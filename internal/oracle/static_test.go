package oracle

import (
	"sync"
	"testing"
)

func TestStaticHost_OriginConcurrentAccess(t *testing.T) {
	host := NewStaticHost("t", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			host.SetOrigin("https://updated.local")
		}()
		go func() {
			defer wg.Done()
			_ = host.Origin()
		}()
	}
	wg.Wait()

	if got := host.Origin(); got != "https://updated.local" {
		t.Errorf("origin = %q, want https://updated.local", got)
	}
}
