// Package runtime wires storage, config, and the episode store into a
// single-node epiview instance. It exposes Open/Close, basic health checks,
// and accessors used by higher-level services.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	eps, _ := rt.Store().List(context.Background(), catalog.CategoryAll)
package runtime
