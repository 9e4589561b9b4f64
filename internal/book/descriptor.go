package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Parse decodes a book descriptor and validates it. Reader settings the
// descriptor leaves out take their template values.
func Parse(data []byte) (*Book, error) {
	b := Template()
	b.Name = ""
	if err := json.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	if err := Validate(b); err != nil {
		return nil, err
	}

	return b, nil
}

func Decode(r io.Reader) (*Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

func Validate(b *Book) error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("invalid descriptor %q: %w", b.Name, err)
	}
	for i, o := range b.Injections.Subdomains {
		if o.BookReader == nil {
			continue
		}
		if err := validate.Struct(o.BookReader); err != nil {
			return fmt.Errorf("invalid descriptor %q: override %d: %w", b.Name, i, err)
		}
	}

	return nil
}

// Export encodes the book in the interchange format, leaving out the
// fields that only make sense inside one library.
func Export(b *Book) ([]byte, error) {
	out := *b
	out.ID = ""
	out.AddedAt = nil
	out.UpdatedAt = nil
	out.Path = ""
	out.Source = ""

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
