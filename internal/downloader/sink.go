package downloader

// Page is one retrieved script page. Numbers are 1-based, gapless and
// follow retrieval order, which the protocol guarantees is document
// order.
type Page struct {
	Number int
	Data   []byte
	Hash   string
}

// Sink receives unique pages in sequence order and assembles them
// into the final output document once the run terminates.
type Sink interface {
	Accept(page Page) error
	// Finalize builds the output document from everything accepted so
	// far and returns its path.
	Finalize(code string) (string, error)
}
