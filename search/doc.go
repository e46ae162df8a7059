// Package search implements the lazy text search index. Page text is
// extracted (and cached) only the first time a search needs it, so
// documents that are never searched never pay full-document decode
// cost. A scan is an interruptible sequence over pages: a new query
// supersedes an in-flight scan, and extraction failures degrade to
// "no match on this page" instead of failing the search.
package search
