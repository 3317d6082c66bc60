// Package deploy maps a staged mod file tree onto a game installation and
// materializes it there.
//
// Classification is a prioritized rule chain evaluated in sequence, first
// match wins: skip lists, script-extender root files, the script-extender
// plugin subdirectory, an explicit data prefix, loose plugin files, known
// asset directories, root-level libraries and configs, and finally a
// data-tree fallback. More specific structural signals sit earlier in the
// chain; nothing reaches past the fallback undecided.
//
// Execution is retry-safe rather than atomic: each destination is removed
// and recreated independently, per-file failures accumulate without
// aborting the run, and every created entry is recorded so Undeploy can
// reverse exactly what was done.
package deploy
