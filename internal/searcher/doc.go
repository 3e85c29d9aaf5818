// Package searcher implements the scratch structures consumed by greedy
// graph search: the bounded candidate frontier, the visited set, and the
// reusable per-query Searcher aggregate.
package searcher
