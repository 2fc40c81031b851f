// Package httpserver provides the REST gateway for epiview with SSE watch
// support and JSON endpoints over the episode catalog and browse session.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	svc := episodesvc.New(rt.Store(), source, logger)
//	sess := browsesvc.NewSession(svc, nil, logger)
//	s := httpserver.New(rt, svc, sess, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
