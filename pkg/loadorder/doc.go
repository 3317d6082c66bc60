// Package loadorder computes the deterministic activation order for all
// mods in a collection.
//
// Ordering inputs, in precedence:
//
//  1. Authored rules from the collection manifest (before/after/requires),
//     turned into directed edges. Rules referencing mods outside the
//     active set are dropped.
//  2. Declared requirement edges (required mod before dependent).
//  3. Phase tiers, used only as a tie-break among simultaneously ready
//     nodes, never as a hard edge.
//
// The sort is Kahn's algorithm over a priority queue keyed by
// (phase, folded name, mod id), which makes the output a deterministic
// function of its inputs. Cyclic rule sets are not fatal: the cycle
// members are appended in (phase, name) order so the output is always a
// full permutation of the input mod set, and the condition is reported to
// the caller for visibility.
//
// For plugin-file based games the package also produces a plugin listing,
// optionally reordered by an external sorter; see MergePluginOrder.
package loadorder
