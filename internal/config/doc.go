// Package config provides the configuration of a history session.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← REWIND_*, highest priority
//	├─────────────────────────────┤
//	│  2. Config File             │  ← rewind.toml or rewind.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: Configuration file loading (TOML, YAML, environment variables)
//   - watcher: File watching for live reload
//
// # Basic Usage
//
//	cfg, err := config.Load("rewind.toml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.History.Capacity)
//
// # Settings
//
//	history.capacity     undo bound, 0 for unbounded
//	history.labelPrefix  prefix of generated snapshot labels
//	log.level            debug, info, warn or error
//	log.encoding         json or console
//	log.file             rotated log file; empty logs to stderr
//	log.maxSizeMB        rotation size, with log.maxBackups and log.maxAgeDays
//	metrics.enabled      register prometheus collectors
//	metrics.namespace    prometheus metric namespace
//	hooks.script         Lua script providing on_capture/on_undo/on_redo/on_evict
package config
