// Package watcher reloads rule documents when they change on disk.
//
// Watcher wraps fsnotify and debounces bursts of events, so that an editor
// writing a file several times produces one reload. Reloader performs the
// reload itself: it loads the documents and replaces the engine's registry
// in one step, or keeps the current rules when loading fails.
//
//	reg := engine.NewRegistry(defs)
//	r := watcher.NewReloader(cfg.Rules.Path, loader.New(nil), reg, logger)
//	w, err := watcher.New(&watcher.Config{Path: cfg.Rules.Path, DebounceInterval: cfg.Rules.Debounce}, logger)
//	go w.Watch(ctx, r.Reload)
package watcher
