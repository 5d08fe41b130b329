// Package main hosts the gazerec CLI entrypoint and command graph.
//
// The Cobra command tree runs recordings, inspects and maintains the local
// session store, packages and uploads archives, and drives a live recording
// over its IPC socket (`gazerec ctl`). Configuration resolution, store
// access and logger setup live in the command context so subcommands stay
// declarative while the work happens in the internal packages.
package main
