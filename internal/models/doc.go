// Package models defines the data model shared by the catalog adapters,
// the matcher and the transfer engine.
//
// A library snapshot is a set of [Item] slices keyed by [ItemType]. Items
// are materialized in bulk when an account's favorites are fetched and are
// read-only afterwards. Search results arrive as [Candidate] values and
// are discarded as soon as the matcher has scored them.
package models
