package xmlmapper

import (
	"encoding/xml"
	"strings"

	"github.com/wolfleong/gobatis/dynamicsql"
)

// parseSqlNodeTree walks a statement body (already include-expanded) with
// an xml.Decoder, building the dynamicsql.Node tree for the <if>/<where>/
// <set>/<trim>/<choose>/<when>/<otherwise>/<foreach>/<bind> grammar.
// isDynamic reports whether any dynamic tag or ${...} substitution was
// present; a body with neither is plain text (candidate for RawSqlSource).
func parseSqlNodeTree(body string) (dynamicsql.Node, bool, error) {
	wrapped := "<root>" + body + "</root>"
	dec := xml.NewDecoder(strings.NewReader(wrapped))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	// consume the synthetic <root> start element
	if _, err := dec.Token(); err != nil {
		return nil, false, err
	}
	node, dynamic, err := parseChildren(dec, "root")
	if err != nil {
		return nil, false, err
	}
	return node, dynamic, nil
}

// parseChildren consumes tokens until the matching end element for
// enclosingTag, returning a Sequence of the children encountered.
func parseChildren(dec *xml.Decoder, enclosingTag string) (dynamicsql.Node, bool, error) {
	seq := &dynamicsql.Sequence{}
	dynamic := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return seq, dynamic, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text := string(t)
			if strings.TrimSpace(text) == "" {
				continue
			}
			if strings.Contains(text, "${") {
				seq.Children = append(seq.Children, &dynamicsql.TextWithSubst{Text: text})
				dynamic = true
			} else {
				seq.Children = append(seq.Children, &dynamicsql.StaticText{Text: text})
			}
		case xml.StartElement:
			dynamic = true
			child, err := parseElement(dec, t)
			if err != nil {
				return seq, dynamic, err
			}
			seq.Children = append(seq.Children, child)
		case xml.EndElement:
			if t.Name.Local == enclosingTag {
				return seq, dynamic, nil
			}
		}
	}
}

func attrOf(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func parseElement(dec *xml.Decoder, start xml.StartElement) (dynamicsql.Node, error) {
	switch start.Name.Local {
	case "if":
		body, _, err := parseChildren(dec, "if")
		if err != nil {
			return nil, err
		}
		return &dynamicsql.If{Test: attrOf(start, "test"), Then: body}, nil

	case "where":
		body, _, err := parseChildren(dec, "where")
		if err != nil {
			return nil, err
		}
		return dynamicsql.NewWhere(body), nil

	case "set":
		body, _, err := parseChildren(dec, "set")
		if err != nil {
			return nil, err
		}
		return dynamicsql.NewSet(body), nil

	case "trim":
		body, _, err := parseChildren(dec, "trim")
		if err != nil {
			return nil, err
		}
		return &dynamicsql.Trim{
			Child:           body,
			Prefix:          attrOf(start, "prefix"),
			Suffix:          attrOf(start, "suffix"),
			PrefixOverrides: splitOverrides(attrOf(start, "prefixOverrides")),
			SuffixOverrides: splitOverrides(attrOf(start, "suffixOverrides")),
		}, nil

	case "choose":
		return parseChoose(dec)

	case "foreach":
		body, _, err := parseChildren(dec, "foreach")
		if err != nil {
			return nil, err
		}
		return &dynamicsql.ForEach{
			Collection: attrOf(start, "collection"),
			Item:       attrOf(start, "item"),
			IndexVar:   attrOf(start, "index"),
			Open:       attrOf(start, "open"),
			Close:      attrOf(start, "close"),
			Sep:        attrOf(start, "separator"),
			Child:      body,
		}, nil

	case "bind":
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return &dynamicsql.VarDecl{Name: attrOf(start, "name"), Expr: attrOf(start, "value")}, nil

	default:
		// Unknown/unsupported element (e.g. a nested <selectKey> already
		// handled by the caller): skip its subtree, contribute nothing.
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return &dynamicsql.StaticText{Text: ""}, nil
	}
}

func parseChoose(dec *xml.Decoder) (dynamicsql.Node, error) {
	choose := &dynamicsql.Choose{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return choose, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "when":
				body, _, err := parseChildren(dec, "when")
				if err != nil {
					return choose, err
				}
				choose.Whens = append(choose.Whens, dynamicsql.When{Test: attrOf(t, "test"), Then: body})
			case "otherwise":
				body, _, err := parseChildren(dec, "otherwise")
				if err != nil {
					return choose, err
				}
				choose.Otherwise = body
			default:
				if err := dec.Skip(); err != nil {
					return choose, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "choose" {
				return choose, nil
			}
		}
	}
}

func splitOverrides(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// textContent renders a (non-dynamic) node tree back to plain text, for
// the RawSqlSource fast path when a statement body has no dynamic tags.
func textContent(n dynamicsql.Node) string {
	switch v := n.(type) {
	case *dynamicsql.Sequence:
		var sb strings.Builder
		for _, c := range v.Children {
			sb.WriteString(textContent(c))
		}
		return sb.String()
	case *dynamicsql.StaticText:
		return v.Text
	case *dynamicsql.TextWithSubst:
		return v.Text
	default:
		return ""
	}
}
