package menu_test

import (
	"strings"
	"testing"

	"menueditor-backend/internal/menu"
	apperrors "menueditor-backend/pkg/errors"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *menu.Document {
	return &menu.Document{Menus: []*menu.Menu{
		{Name: "main", Items: []*menu.Item{
			{Fields: []menu.Field{
				{Key: "label", Value: menu.String("Home")},
				{Key: "title", Value: menu.String("This is the first menu item.")},
				{Key: "path", Value: menu.String("homepage")},
				{Key: "class", Value: menu.String("first")},
			}},
			{
				Fields: []menu.Field{
					{Key: "label", Value: menu.String("About")},
					{Key: "path", Value: menu.String("page/about")},
				},
				Children: []*menu.Item{
					{Fields: []menu.Field{
						{Key: "label", Value: menu.String("Team")},
						{Key: "path", Value: menu.String("page/team")},
					}},
				},
			},
			{Fields: []menu.Field{
				{Key: "label", Value: menu.String("Weight")},
				{Key: "weight", Value: menu.Int(10)},
				{Key: "visible", Value: menu.Bool(true)},
				{Key: "note", Value: menu.Null()},
				{Key: "code", Value: menu.String("007")},
			}},
		}},
		{Name: "footer", Items: []*menu.Item{}},
	}}
}

// chain builds a single menu whose items nest depth levels deep.
func chain(depth int) *menu.Document {
	var build func(level int) *menu.Item
	build = func(level int) *menu.Item {
		it := &menu.Item{Fields: []menu.Field{{Key: "label", Value: menu.String("level")}}}
		if level < depth {
			it.Children = []*menu.Item{build(level + 1)}
		}
		return it
	}
	return &menu.Document{Menus: []*menu.Menu{{Name: "main", Items: []*menu.Item{build(1)}}}}
}

// docOpts compares documents structurally. The children key is checked by
// Document.Equal, which knows its default.
var docOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.IgnoreFields(menu.Item{}, "ChildrenKey"),
	cmp.Comparer(func(a, b menu.Scalar) bool { return a.Equal(b) }),
}

func TestCodec_EncodeLayout(t *testing.T) {
	codec := menu.NewCodec(0)

	out, err := codec.Encode(sampleDocument())
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "menu", out)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := menu.NewCodec(menu.DefaultMaxDepth)

	t.Run("Should reproduce menus, items, fields and tags", func(t *testing.T) {
		// Arrange
		doc := sampleDocument()

		// Act
		text, err := codec.Encode(doc)
		require.NoError(t, err)
		parsed, err := codec.Decode(text)
		require.NoError(t, err)

		// Assert
		if diff := cmp.Diff(doc, parsed, docOpts); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
		assert.True(t, doc.Equal(parsed))
		assert.Equal(t, []string{"main", "footer"}, parsed.Names())
	})

	t.Run("Should keep the children key an item was read with", func(t *testing.T) {
		text := []byte("main:\n  - label: Docs\n    children:\n      - label: API\n")

		doc, err := codec.Decode(text)
		require.NoError(t, err)
		out, err := codec.Encode(doc)
		require.NoError(t, err)

		assert.Equal(t, string(text), string(out))
	})

	t.Run("Should keep an empty children list", func(t *testing.T) {
		text := []byte("main:\n  - label: Docs\n    submenu: []\n")

		doc, err := codec.Decode(text)
		require.NoError(t, err)
		out, err := codec.Encode(doc)
		require.NoError(t, err)

		assert.Equal(t, string(text), string(out))
	})
}

func TestCodec_DepthGuard(t *testing.T) {
	codec := menu.NewCodec(2)

	t.Run("Should encode a tree at the maximum depth", func(t *testing.T) {
		_, err := codec.Encode(chain(2))
		assert.NoError(t, err)
	})

	t.Run("Should refuse to encode a deeper tree", func(t *testing.T) {
		_, err := codec.Encode(chain(3))
		assert.ErrorIs(t, err, menu.ErrDepthExceeded)
	})

	t.Run("Should refuse to decode a deeper tree", func(t *testing.T) {
		text, err := menu.NewCodec(0).Encode(chain(3))
		require.NoError(t, err)

		_, err = codec.Decode(text)
		assert.True(t, apperrors.IsParseError(err))
		assert.ErrorIs(t, err, menu.ErrDepthExceeded)
	})
}

func TestCodec_Decode(t *testing.T) {
	codec := menu.NewCodec(0)

	t.Run("Should treat empty text as an empty document", func(t *testing.T) {
		doc, err := codec.Decode([]byte("  \n"))
		require.NoError(t, err)
		assert.Empty(t, doc.Menus)
	})

	t.Run("Should treat a null menu as an empty menu", func(t *testing.T) {
		doc, err := codec.Decode([]byte("main:\nfooter: []\n"))
		require.NoError(t, err)

		m, ok := doc.Menu("main")
		require.True(t, ok)
		assert.Empty(t, m.Items)
	})

	t.Run("Should resolve aliases", func(t *testing.T) {
		text := "main:\n  - &home\n    label: Home\nfooter:\n  - *home\n"

		doc, err := codec.Decode([]byte(text))
		require.NoError(t, err)

		footer, ok := doc.Menu("footer")
		require.True(t, ok)
		require.Len(t, footer.Items, 1)
		assert.Equal(t, "Home", footer.Items[0].Label())
	})

	t.Run("Should preserve scalar tags", func(t *testing.T) {
		doc, err := codec.Decode([]byte("main:\n  - label: \"123\"\n    weight: 5\n    ratio: 0.5\n"))
		require.NoError(t, err)

		item := doc.Menus[0].Items[0]
		label, _ := item.Get("label")
		weight, _ := item.Get("weight")
		ratio, _ := item.Get("ratio")
		assert.Equal(t, menu.String("123"), label)
		assert.Equal(t, menu.Int(5), weight)
		assert.Equal(t, menu.TagFloat, ratio.Tag)
	})

	tests := []struct {
		name string
		text string
	}{
		{name: "Should reject invalid YAML", text: "main: [\n"},
		{name: "Should reject duplicate menu names", text: "main: []\nmain: []\n"},
		{name: "Should reject duplicate item keys", text: "main:\n  - label: a\n    label: b\n"},
		{name: "Should reject malformed tagged scalars", text: "main:\n  - weight: !!int abc\n"},
		{name: "Should reject a scalar document", text: "just text\n"},
		{name: "Should reject a menu that is not a list", text: "main: value\n"},
		{name: "Should reject nested mapping attributes", text: "main:\n  - label:\n      en: Home\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode([]byte(tt.text))
			require.Error(t, err)
			assert.True(t, apperrors.IsParseError(err), "got %v", err)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	limits := menu.Limits{MaxDepth: 3}

	t.Run("Should decode the editor payload in order", func(t *testing.T) {
		payload := `{"main":[{"label":"Home","path":"homepage","weight":10,"visible":true,"note":null,` +
			`"submenu":[{"label":"Team","link":"http://example.org"}]}],"footer":null}`

		doc, err := menu.DecodeJSON([]byte(payload), limits)
		require.NoError(t, err)

		want := &menu.Document{Menus: []*menu.Menu{
			{Name: "main", Items: []*menu.Item{{
				Fields: []menu.Field{
					{Key: "label", Value: menu.String("Home")},
					{Key: "path", Value: menu.String("homepage")},
					{Key: "weight", Value: menu.Int(10)},
					{Key: "visible", Value: menu.Bool(true)},
					{Key: "note", Value: menu.Null()},
				},
				ChildrenKey: "submenu",
				Children: []*menu.Item{{Fields: []menu.Field{
					{Key: "label", Value: menu.String("Team")},
					{Key: "link", Value: menu.String("http://example.org")},
				}}},
			}}},
			{Name: "footer"},
		}}
		if diff := cmp.Diff(want, doc, docOpts); diff != "" {
			t.Errorf("decoded document mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Should not coerce numeric strings", func(t *testing.T) {
		doc, err := menu.DecodeJSON([]byte(`{"main":[{"label":"123","code":"007"}]}`), limits)
		require.NoError(t, err)

		label, _ := doc.Menus[0].Items[0].Get("label")
		assert.Equal(t, menu.String("123"), label)
	})

	t.Run("Should accept an empty array as an empty document", func(t *testing.T) {
		doc, err := menu.DecodeJSON([]byte(`[]`), limits)
		require.NoError(t, err)
		assert.Empty(t, doc.Menus)
	})

	t.Run("Should report nesting beyond the JSON scanner limit as too deep", func(t *testing.T) {
		const levels = 6000
		payload := `{"main":` + strings.Repeat(`[{"submenu":`, levels) + `[]` + strings.Repeat(`}]`, levels) + `}`

		_, err := menu.DecodeJSON([]byte(payload), menu.Limits{})

		assert.True(t, apperrors.IsValidationFailed(err), "got %v", err)
		assert.ErrorIs(t, err, menu.ErrDepthExceeded)
	})

	t.Run("Should store out of range numbers as infinities", func(t *testing.T) {
		doc, err := menu.DecodeJSON([]byte(`{"main":[{"up":1e400,"down":-1e400}]}`), limits)
		require.NoError(t, err)

		item := doc.Menus[0].Items[0]
		up, _ := item.Get("up")
		down, _ := item.Get("down")
		assert.Equal(t, menu.Scalar{Tag: menu.TagFloat, Value: ".inf"}, up)
		assert.Equal(t, menu.Scalar{Tag: menu.TagFloat, Value: "-.inf"}, down)

		_, err = menu.NewValidator(menu.NewCodec(0)).Validate(doc)
		assert.NoError(t, err)
	})

	malformed := []string{``, `   `, `{`, `{"main":[]} {}`, `{'main':[]}`}
	for _, payload := range malformed {
		payload := payload
		t.Run("Should report malformed payload "+strings.TrimSpace(payload), func(t *testing.T) {
			_, err := menu.DecodeJSON([]byte(payload), limits)
			assert.True(t, apperrors.IsMalformedPayload(err), "got %v", err)
		})
	}

	invalid := []struct {
		name    string
		payload string
	}{
		{name: "top level array of items", payload: `[{"label":"Home"}]`},
		{name: "top level scalar", payload: `"main"`},
		{name: "menu as object", payload: `{"main":{"label":"Home"}}`},
		{name: "item as scalar", payload: `{"main":["Home"]}`},
		{name: "object attribute", payload: `{"main":[{"label":{"en":"Home"}}]}`},
		{name: "array attribute", payload: `{"main":[{"tags":["a"]}]}`},
		{name: "duplicate menu", payload: `{"main":[],"main":[]}`},
		{name: "duplicate field", payload: `{"main":[{"label":"a","label":"b"}]}`},
		{name: "too deep", payload: `{"main":[{"submenu":[{"submenu":[{"submenu":[{"label":"x"}]}]}]}]}`},
	}
	for _, tt := range invalid {
		t.Run("Should reject "+tt.name, func(t *testing.T) {
			_, err := menu.DecodeJSON([]byte(tt.payload), limits)
			assert.True(t, apperrors.IsValidationFailed(err), "got %v", err)
		})
	}
}

func TestDocument_MarshalJSON(t *testing.T) {
	doc, err := menu.DecodeJSON([]byte(`{"main":[{"label":"Home","weight":1.5,"visible":false,"submenu":[]}],"footer":[]}`), menu.Limits{})
	require.NoError(t, err)

	out, err := doc.MarshalJSON()
	require.NoError(t, err)

	assert.Equal(t, `{"main":[{"label":"Home","weight":1.5,"visible":false,"submenu":[]}],"footer":[]}`, string(out))
}

func TestValidator_Validate(t *testing.T) {
	v := menu.NewValidator(menu.NewCodec(0))

	t.Run("Should return the text to store", func(t *testing.T) {
		text, err := v.Validate(sampleDocument())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(text), "main:\n  - label: Home\n"))
	})

	t.Run("Should reject a document that cannot be serialized", func(t *testing.T) {
		doc := &menu.Document{Menus: []*menu.Menu{{Name: "main"}, {Name: "main"}}}

		_, err := v.Validate(doc)
		assert.True(t, apperrors.IsValidationFailed(err))
		assert.ErrorIs(t, err, menu.ErrDuplicateKey)
	})

	t.Run("Should reject a document deeper than the limit", func(t *testing.T) {
		_, err := menu.NewValidator(menu.NewCodec(1)).Validate(chain(2))
		assert.True(t, apperrors.IsValidationFailed(err))
	})

	t.Run("Should reject a scalar whose text does not match its tag", func(t *testing.T) {
		doc := &menu.Document{Menus: []*menu.Menu{{Name: "main", Items: []*menu.Item{
			{Fields: []menu.Field{{Key: "weight", Value: menu.Scalar{Tag: menu.TagInt, Value: "ten"}}}},
		}}}}

		_, err := v.Validate(doc)
		assert.True(t, apperrors.IsValidationFailed(err))
	})

	t.Run("Should keep a literal merge key as a plain attribute", func(t *testing.T) {
		doc, err := menu.DecodeJSON([]byte(`{"main":[{"<<":"x","label":"Home"}]}`), menu.Limits{})
		require.NoError(t, err)

		text, err := v.Validate(doc)
		require.NoError(t, err)
		assert.Contains(t, string(text), `"<<": x`)

		back, err := menu.NewCodec(0).Decode(text)
		require.NoError(t, err)
		if diff := cmp.Diff(doc, back, docOpts); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Should accept an empty document", func(t *testing.T) {
		text, err := v.Validate(nil)
		require.NoError(t, err)
		assert.Equal(t, "{}\n", string(text))
	})
}
