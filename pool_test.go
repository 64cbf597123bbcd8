package mdrender

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire() (*Service, error)
	Release(*Service)
	Size() int
	Close() error
} = (*ServicePool)(nil)

// fakePool builds services that never launch a browser.
func fakePool(n int) *ServicePool {
	return NewServicePool(n,
		WithRasterizer(&fakeRasterizer{}),
		WithDiagramEngine(&stubEngine{}),
		WithSink(newMemorySink()))
}

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit takes priority", 4, 4},
		{"explicit=1 for sequential", 1, 1},
		{"explicit can exceed max", 16, 16},
		{"zero uses auto calculation", 0, min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize)},
		{"negative uses auto calculation", -3, min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ResolvePoolSize(tt.workers); got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func TestServicePool_AcquireRelease(t *testing.T) {
	t.Parallel()

	pool := fakePool(2)
	defer pool.Close()

	svc1, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	svc2, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if svc1 == svc2 {
		t.Error("expected different service instances")
	}

	pool.Release(svc1)
	svc3, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if svc3 != svc1 {
		t.Error("expected to get back released service")
	}

	pool.Release(svc2)
	pool.Release(svc3)
}

func TestServicePool_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size int
		want int
	}{
		{"size 1", 1, 1},
		{"size 4", 4, 4},
		{"size 0 becomes 1", 0, 1},
		{"negative becomes 1", -1, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool := fakePool(tt.size)
			defer pool.Close()

			if got := pool.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServicePool_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	pool := fakePool(4)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc, err := pool.Acquire()
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			svc.RenderSync("# concurrent")
			time.Sleep(5 * time.Millisecond)
			pool.Release(svc)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent access timed out - possible deadlock")
	}
}

func TestServicePool_Close(t *testing.T) {
	t.Parallel()

	pool := fakePool(2)
	svc, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	pool.Release(svc) // no-op after close

	if _, err := pool.Acquire(); !errors.Is(err, ErrServiceClosed) {
		t.Errorf("Acquire() after Close error = %v, want ErrServiceClosed", err)
	}
	if _, err := svc.RenderAsync(context.Background(), "# x"); !errors.Is(err, ErrServiceClosed) {
		t.Errorf("pooled service still open after Close: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestServicePool_AcquireError(t *testing.T) {
	t.Parallel()

	pool := NewServicePool(1, WithAssetPath("/nonexistent/mdrender"))
	defer pool.Close()

	if _, err := pool.Acquire(); !errors.Is(err, ErrInvalidAssetPath) {
		t.Fatalf("Acquire() error = %v, want ErrInvalidAssetPath", err)
	}
	// A failed creation frees its slot.
	if _, err := pool.Acquire(); !errors.Is(err, ErrInvalidAssetPath) {
		t.Errorf("second Acquire() error = %v, want ErrInvalidAssetPath", err)
	}
}
