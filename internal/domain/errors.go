package domain

import "errors"

var (
	ErrNoDocuments         = errors.New("no readable documents in batch")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyDocument       = errors.New("document contains no extractable text")
	ErrNoJSONFound         = errors.New("no JSON object found in model response")
	ErrResponseTruncated   = errors.New("model response truncated at output token limit")
)
