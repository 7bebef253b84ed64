package dashboard

import "errors"

// Dataset-scoped failure taxonomy. None of these aborts sibling datasets.
var (
	// ErrMissingColumn marks a declared field whose header could not be resolved.
	ErrMissingColumn = errors.New("missing column")
	// ErrEmptyInput marks a source that produced zero rows or records.
	ErrEmptyInput = errors.New("empty input")
	// ErrSourceShapeNotFound marks scraped HTML without the expected embedded array.
	ErrSourceShapeNotFound = errors.New("source shape not found")
	// ErrMalformedNumber marks a cell that did not parse as a number; the value is kept as NaN.
	ErrMalformedNumber = errors.New("malformed number")
	// ErrTransport marks network errors and non-2xx responses.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedPayload marks an embedded JSON array that does not parse.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrLengthMismatch marks label and value sequences of different lengths.
	ErrLengthMismatch = errors.New("label and value lengths differ")
	// ErrUnsupportedSource marks a source URL whose scheme or format has no reader.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrUnknownDataset marks a lookup for a dataset that is not declared.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// ErrorKind names the taxonomy entry matching err, or "internal" when none does.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrSourceShapeNotFound):
		return "source_shape_not_found"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrTransport):
		return "transport_failure"
	case errors.Is(err, ErrMissingColumn):
		return "missing_column"
	case errors.Is(err, ErrMalformedNumber):
		return "malformed_number"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrUnsupportedSource):
		return "unsupported_source"
	case errors.Is(err, ErrUnknownDataset):
		return "unknown_dataset"
	default:
		return "internal"
	}
}
