package dataset

// Sink receives the rendered dataset. The builder writes the header
// first, then rows in order, and flushes at repository boundaries so
// a partial build still leaves whole repositories behind.
type Sink interface {
	WriteHeader(columns []string) error
	WriteRow(row []string) error
	Flush() error
	Close() error
}
