// Package config provides loading and environment overlay for epiview
// runtime configuration. It exposes a Default() baseline and helpers to
// construct an Options struct for the runtime and servers.
//
// Example:
//
//	cfg := config.Default()
//	// Optionally load from file and overlay env vars
//	if fileCfg, err := config.Load("/etc/epiview.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{DataDir: "/var/lib/epiview", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
package config
