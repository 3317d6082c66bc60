// Package types defines the core types and interfaces used throughout
// modcollect: mod and manifest records, deployment plans and results, and
// the FS and PluginSorter interfaces the rest of the codebase depends on.
package types
