package menu

import (
	"errors"

	apperrors "menueditor-backend/pkg/errors"
)

var errRoundTrip = errors.New("document changed after encoding and parsing")

// Validator accepts a document only when its YAML form parses back to the same
// document. It has no side effects.
type Validator struct {
	codec *Codec
}

// NewValidator creates a validator that checks documents through codec.
func NewValidator(codec *Codec) *Validator {
	return &Validator{codec: codec}
}

// Validate encodes doc and parses the result back. On success it returns the
// encoded text, which is exactly what should be stored.
func (v *Validator) Validate(doc *Document) ([]byte, error) {
	doc = normalize(doc)
	text, err := v.codec.Encode(doc)
	if err != nil {
		return nil, apperrors.NewValidationFailed("menu could not be serialized", err)
	}

	parsed, err := v.codec.Decode(text)
	if err != nil {
		return nil, apperrors.NewValidationFailed("serialized menu could not be parsed", err)
	}
	if !doc.Equal(parsed) {
		return nil, apperrors.NewValidationFailed("serialized menu does not match the submitted menu", errRoundTrip)
	}
	return text, nil
}

// normalize treats a nil document as empty.
func normalize(doc *Document) *Document {
	if doc == nil {
		return &Document{}
	}
	return doc
}
