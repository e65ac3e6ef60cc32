// Package dataset flattens a crawled corpus into a tabular training
// dataset.
//
// # Rows
//
// Every row describes one issue. When a pull request's body links the
// issue through a closing keyword, the row also carries the pull's
// metadata and its diff broken down by section; issues no pull links
// get a row with the pull columns blanked. Rows are ordered by
// repository owner, repository name, pull request number and then
// issue number, so a rebuild over the same corpus is byte-identical.
//
// # Sections
//
// A pull's diff is attributed to sections by path prefix: each
// changed file belongs to the first matching section, and every added
// or deleted line counts against the file's section. Each section
// contributes an absolute column and a column relative to the pull's
// own totals per attribute.
//
// # Sinks
//
// The rendered rows go through a Sink. Two are provided: CSV, the
// interchange format the training pipeline reads, and SQLite for
// querying a built dataset in place.
package dataset
