package menu

import (
	"bytes"
	"errors"
	"fmt"

	apperrors "menueditor-backend/pkg/errors"

	"gopkg.in/yaml.v3"
)

// Indent is the indentation of the stored file. Existing menu.yml files written by
// the host CMS use two spaces.
const Indent = 2

var (
	// ErrDepthExceeded is returned when items nest deeper than the codec allows.
	ErrDepthExceeded = errors.New("menu nesting exceeds maximum depth")
	// ErrDuplicateKey is returned for repeated menu names or item keys.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrUnsupportedValue is returned for values that are neither scalars nor item lists.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// Codec converts documents to and from YAML.
type Codec struct {
	maxDepth int
}

// NewCodec creates a codec bounded to maxDepth levels of item nesting. A
// non-positive maxDepth selects DefaultMaxDepth.
func NewCodec(maxDepth int) *Codec {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Codec{maxDepth: maxDepth}
}

// MaxDepth returns the nesting bound.
func (c *Codec) MaxDepth() int { return c.maxDepth }

// Encode renders the document as YAML. Menu and item order are preserved.
func (c *Codec) Encode(doc *Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	seen := make(map[string]bool, len(doc.Menus))
	for _, m := range doc.Menus {
		if seen[m.Name] {
			return nil, fmt.Errorf("%w: menu %q", ErrDuplicateKey, m.Name)
		}
		seen[m.Name] = true

		seq, err := c.encodeItems(m.Items, 1)
		if err != nil {
			return nil, fmt.Errorf("menu %q: %w", m.Name, err)
		}
		root.Content = append(root.Content, keyNode(m.Name), seq)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(Indent)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode menu document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode menu document: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Codec) encodeItems(items []*Item, depth int) (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(items) == 0 {
		return seq, nil
	}
	if depth > c.maxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrDepthExceeded, c.maxDepth)
	}

	for _, it := range items {
		if it == nil {
			return nil, fmt.Errorf("%w: nil item", ErrUnsupportedValue)
		}
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		seen := make(map[string]bool, len(it.Fields)+1)
		for _, f := range it.Fields {
			if seen[f.Key] {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, f.Key)
			}
			seen[f.Key] = true
			m.Content = append(m.Content, keyNode(f.Key), &yaml.Node{
				Kind:  yaml.ScalarNode,
				Tag:   f.Value.tag(),
				Value: f.Value.Value,
			})
		}

		if key := it.childrenKey(); key != "" {
			if seen[key] {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
			}
			children, err := c.encodeItems(it.Children, depth+1)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, keyNode(key), children)
		}
		seq.Content = append(seq.Content, m)
	}
	return seq, nil
}

// keyNode quotes "<<" so it is not read back as a merge key.
func keyNode(key string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: TagStr, Value: key}
	if key == "<<" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

// Decode parses YAML text into a document. Empty text is an empty document.
// Errors are PARSE_ERROR application errors.
func (c *Codec) Decode(text []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(text, &root); err != nil {
		return nil, apperrors.NewParseError("menu document is not valid YAML", err)
	}
	if root.Kind == 0 {
		return &Document{}, nil
	}

	// Full decode catches malformed tagged scalars, duplicate keys and
	// self-referencing aliases before the tree is walked.
	var probe interface{}
	if err := root.Decode(&probe); err != nil {
		return nil, apperrors.NewParseError("menu document contains invalid values", err)
	}

	doc, err := c.decodeDocument(&root)
	if err != nil {
		return nil, apperrors.NewParseError("menu document has an unexpected structure", err)
	}
	return doc, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == TagNull
}

func (c *Codec) decodeDocument(root *yaml.Node) (*Document, error) {
	n := resolve(root)
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return &Document{}, nil
		}
		n = resolve(n.Content[0])
	}
	if isNull(n) {
		return &Document{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: document must be a mapping of menus", n.Line)
	}

	doc := &Document{Menus: make([]*Menu, 0, len(n.Content)/2)}
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := resolve(n.Content[i]), resolve(n.Content[i+1])
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: menu name must be a scalar", key.Line)
		}
		if seen[key.Value] {
			return nil, fmt.Errorf("%w: menu %q", ErrDuplicateKey, key.Value)
		}
		seen[key.Value] = true

		m := &Menu{Name: key.Value}
		switch {
		case isNull(value):
			m.Items = []*Item{}
		case value.Kind == yaml.SequenceNode:
			items, err := c.decodeItems(value, 1)
			if err != nil {
				return nil, fmt.Errorf("menu %q: %w", key.Value, err)
			}
			m.Items = items
		default:
			return nil, fmt.Errorf("line %d: menu %q must be a list of items", value.Line, key.Value)
		}
		doc.Menus = append(doc.Menus, m)
	}
	return doc, nil
}

func (c *Codec) decodeItems(seq *yaml.Node, depth int) ([]*Item, error) {
	items := make([]*Item, 0, len(seq.Content))
	if len(seq.Content) == 0 {
		return items, nil
	}
	if depth > c.maxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrDepthExceeded, c.maxDepth)
	}

	for _, raw := range seq.Content {
		n := resolve(raw)
		if n.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: menu item must be a mapping", n.Line)
		}

		it := &Item{Fields: make([]Field, 0, len(n.Content)/2)}
		seen := make(map[string]bool, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := resolve(n.Content[i]), resolve(n.Content[i+1])
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: item key must be a scalar", key.Line)
			}
			if seen[key.Value] {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key.Value)
			}
			seen[key.Value] = true

			switch {
			case value.Kind == yaml.ScalarNode:
				it.Fields = append(it.Fields, Field{
					Key:   key.Value,
					Value: Scalar{Tag: value.ShortTag(), Value: value.Value},
				})
			case value.Kind == yaml.SequenceNode && isChildrenKey(key.Value):
				if it.ChildrenKey != "" {
					return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateKey, it.ChildrenKey, key.Value)
				}
				children, err := c.decodeItems(value, depth+1)
				if err != nil {
					return nil, err
				}
				it.ChildrenKey = key.Value
				it.Children = children
			default:
				return nil, fmt.Errorf("%w: line %d: key %q", ErrUnsupportedValue, value.Line, key.Value)
			}
		}
		items = append(items, it)
	}
	return items, nil
}
