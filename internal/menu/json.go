package menu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "menueditor-backend/pkg/errors"
)

// Limits bounds what DecodeJSON accepts.
type Limits struct {
	MaxDepth int
}

// errShape marks a well formed payload that is not a menu document.
var errShape = errors.New("not a menu document")

// DecodeJSON decodes the editor's transport payload into a document. The payload
// is an object of menu name to item array, each item an object of scalar
// attributes with an optional children array under "submenu" or "children".
//
// Syntax errors are MALFORMED_PAYLOAD; well formed JSON of the wrong shape is
// VALIDATION_FAILED.
func DecodeJSON(payload []byte, limits Limits) (*Document, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, apperrors.NewMalformedPayload("menu payload is empty", nil)
	}
	if !json.Valid(payload) {
		err := syntaxError(payload)
		// encoding/json stops at 10000 nested values, two per item level.
		if strings.Contains(err.Error(), "exceeded max depth") {
			return nil, apperrors.NewValidationFailed("menu payload is not a menu document",
				fmt.Errorf("%w: %v", ErrDepthExceeded, err))
		}
		return nil, apperrors.NewMalformedPayload("menu payload is not valid JSON", err)
	}

	maxDepth := limits.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	d := &jsonDecoder{dec: json.NewDecoder(bytes.NewReader(payload)), maxDepth: maxDepth}
	d.dec.UseNumber()

	doc, err := d.document()
	if err != nil {
		return nil, apperrors.NewValidationFailed("menu payload is not a menu document", err)
	}
	return doc, nil
}

func syntaxError(payload []byte) error {
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}

type jsonDecoder struct {
	dec      *json.Decoder
	maxDepth int
}

func (d *jsonDecoder) document() (*Document, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return nil, err
	}

	switch tok {
	case json.Delim('{'):
	case json.Delim('['):
		// An empty array is what PHP-style clients send for an empty mapping.
		next, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		if next != json.Delim(']') {
			return nil, fmt.Errorf("%w: top level must be an object", errShape)
		}
		return &Document{Menus: []*Menu{}}, nil
	default:
		return nil, fmt.Errorf("%w: top level must be an object", errShape)
	}

	doc := &Document{Menus: []*Menu{}}
	seen := make(map[string]bool)
	for d.dec.More() {
		name, err := d.key()
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: menu %q", ErrDuplicateKey, name)
		}
		seen[name] = true

		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		m := &Menu{Name: name, Items: []*Item{}}
		switch tok {
		case nil:
		case json.Delim('['):
			items, err := d.items(1)
			if err != nil {
				return nil, fmt.Errorf("menu %q: %w", name, err)
			}
			m.Items = items
		default:
			return nil, fmt.Errorf("%w: menu %q must be an array", errShape, name)
		}
		doc.Menus = append(doc.Menus, m)
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *jsonDecoder) key() (string, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return "", err
	}
	k, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key", errShape)
	}
	return k, nil
}

// items reads array elements after the opening bracket, including the closing one.
func (d *jsonDecoder) items(depth int) ([]*Item, error) {
	items := []*Item{}
	for d.dec.More() {
		if depth > d.maxDepth {
			return nil, fmt.Errorf("%w (%d)", ErrDepthExceeded, d.maxDepth)
		}
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		if tok != json.Delim('{') {
			return nil, fmt.Errorf("%w: menu item must be an object", errShape)
		}
		it, err := d.item(depth)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, err
	}
	return items, nil
}

func (d *jsonDecoder) item(depth int) (*Item, error) {
	it := &Item{Fields: []Field{}}
	seen := make(map[string]bool)
	for d.dec.More() {
		key, err := d.key()
		if err != nil {
			return nil, err
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		seen[key] = true

		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := tok.(type) {
		case json.Delim:
			if v != '[' || !isChildrenKey(key) {
				return nil, fmt.Errorf("%w: %q", ErrUnsupportedValue, key)
			}
			if it.ChildrenKey != "" {
				return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateKey, it.ChildrenKey, key)
			}
			children, err := d.items(depth + 1)
			if err != nil {
				return nil, err
			}
			it.ChildrenKey = key
			it.Children = children
		case string:
			it.Fields = append(it.Fields, Field{Key: key, Value: String(v)})
		case json.Number:
			it.Fields = append(it.Fields, Field{Key: key, Value: number(v)})
		case bool:
			it.Fields = append(it.Fields, Field{Key: key, Value: Bool(v)})
		case nil:
			it.Fields = append(it.Fields, Field{Key: key, Value: Null()})
		}
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, err
	}
	return it, nil
}

// number keeps the literal text. Literals beyond float64 range become YAML
// infinities so the stored file still parses.
func number(n json.Number) Scalar {
	if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return Scalar{Tag: TagInt, Value: n.String()}
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err != nil && math.IsInf(f, 0) {
		if f > 0 {
			return Scalar{Tag: TagFloat, Value: ".inf"}
		}
		return Scalar{Tag: TagFloat, Value: "-.inf"}
	}
	return Scalar{Tag: TagFloat, Value: n.String()}
}

// MarshalJSON renders the document as an object with menus and fields in
// document order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range d.Menus {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, m.Name)
		buf.WriteByte(':')
		writeItems(&buf, m.Items)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeItems(buf *bytes.Buffer, items []*Item) {
	buf.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, f := range it.Fields {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, f.Key)
			buf.WriteByte(':')
			writeScalar(buf, f.Value)
		}
		if key := it.childrenKey(); key != "" {
			if len(it.Fields) > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, key)
			buf.WriteByte(':')
			writeItems(buf, it.Children)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
}

func writeScalar(buf *bytes.Buffer, s Scalar) {
	switch s.tag() {
	case TagInt, TagFloat:
		if json.Valid([]byte(s.Value)) {
			buf.WriteString(s.Value)
			return
		}
	case TagBool:
		if b, err := strconv.ParseBool(s.Value); err == nil {
			buf.WriteString(strconv.FormatBool(b))
			return
		}
	case TagNull:
		buf.WriteString("null")
		return
	}
	writeString(buf, s.Value)
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
