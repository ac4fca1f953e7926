// Package shutdown provides graceful shutdown for BoardMesh.
//
// This package handles process termination:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - Programmatic shutdown via Trigger
//   - Timeout-based forced shutdown
//   - Cleanup hook registration, run in reverse order
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return store.Close() })
//	h.OnShutdown(httpSrv.Shutdown)
//	err := h.Wait()
package shutdown
