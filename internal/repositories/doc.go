// Package repositories implements SQLite persistence for the match
// cache.
//
// [MatchRepository] stores resolved cross-provider id mappings: which
// target-catalog id a source item was matched to and at what score. The
// transfer engine consults it before searching and records every newly
// accepted match, so re-runs against the same pair of providers skip
// search traffic for items already resolved.
//
// The cache holds id mappings only. It is not a transfer history; run
// outcomes live in reports, not here.
package repositories
