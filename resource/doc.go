// Package resource governs the memory, concurrency and IO a search index may
// consume.
//
//   - Memory: score buffers of the distance engine are reserved against a
//     byte budget. ReserveMemory fails fast, AcquireMemory waits.
//   - Workers: partial searches dispatched by the scheduler take a worker
//     slot for their duration.
//   - IO: snapshot streams are throttled with a token bucket through
//     RateLimitedWriter and RateLimitedReader.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    MaxWorkers:         4,
//	    IOLimitBytesPerSec: 100 << 20,
//	})
//
//	if err := rc.ReserveMemory(bufBytes); err != nil {
//	    return err // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(bufBytes)
//
// All methods are safe for concurrent use, and a nil *Controller is valid:
// every method becomes a no-op that never blocks or fails.
package resource
