package port

// DocumentReader reads raw text out of chart files. Implementations handle
// format detection; callers treat unreadable files as skippable.
type DocumentReader interface {
	ReadDocument(path string) (string, error)
	ValidateDocument(path string) bool
}
