// internal/dom/domtest/css.go
package domtest

import (
	"strings"

	"golang.org/x/net/html"
)

// The fake page implements the CSS selector subset the extraction code and
// its fixtures actually use: tag, #id, .class, [attr], [attr='value'],
// compounds of those, the descendant combinator, and comma-separated groups.

type attrCond struct {
	name   string
	value  string
	hasVal bool
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrCond
}

// chain is a descendant-combinator sequence; the last compound matches the
// candidate node, earlier ones must match ancestors in order.
type chain []compound

func parseSelectorGroup(s string) []chain {
	var group []chain
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var ch chain
		for _, token := range strings.Fields(part) {
			ch = append(ch, parseCompound(token))
		}
		if len(ch) > 0 {
			group = append(group, ch)
		}
	}
	return group
}

func parseCompound(s string) compound {
	var c compound
	i := 0
	// Leading tag name, if any.
	for i < len(s) && s[i] != '#' && s[i] != '.' && s[i] != '[' {
		i++
	}
	c.tag = strings.ToLower(s[:i])
	for i < len(s) {
		switch s[i] {
		case '#':
			j := i + 1
			for j < len(s) && s[j] != '.' && s[j] != '[' && s[j] != '#' {
				j++
			}
			c.id = s[i+1 : j]
			i = j
		case '.':
			j := i + 1
			for j < len(s) && s[j] != '.' && s[j] != '[' && s[j] != '#' {
				j++
			}
			c.classes = append(c.classes, s[i+1:j])
			i = j
		case '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return c
			}
			body := s[i+1 : i+j]
			i += j + 1
			cond := attrCond{}
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				cond.name = body[:eq]
				cond.value = strings.Trim(body[eq+1:], `'"`)
				cond.hasVal = true
			} else {
				cond.name = body
			}
			c.attrs = append(c.attrs, cond)
		default:
			i++
		}
	}
	return c
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	raw, _ := attrValue(n, "class")
	for _, c := range strings.Fields(raw) {
		if c == class {
			return true
		}
	}
	return false
}

func matchCompound(n *html.Node, c compound) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && strings.ToLower(n.Data) != c.tag {
		return false
	}
	if c.id != "" {
		if id, ok := attrValue(n, "id"); !ok || id != c.id {
			return false
		}
	}
	for _, class := range c.classes {
		if !hasClass(n, class) {
			return false
		}
	}
	for _, cond := range c.attrs {
		v, ok := attrValue(n, cond.name)
		if !ok {
			return false
		}
		if cond.hasVal && v != cond.value {
			return false
		}
	}
	return true
}

func matchChain(n *html.Node, ch chain) bool {
	if !matchCompound(n, ch[len(ch)-1]) {
		return false
	}
	anc := n.Parent
	for i := len(ch) - 2; i >= 0; i-- {
		for {
			if anc == nil {
				return false
			}
			if matchCompound(anc, ch[i]) {
				anc = anc.Parent
				break
			}
			anc = anc.Parent
		}
	}
	return true
}

// selectAll returns root's descendants matching the selector, in document
// order. root itself is never a candidate.
func selectAll(root *html.Node, selector string) []*html.Node {
	group := parseSelectorGroup(selector)
	if len(group) == 0 {
		return nil
	}
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode {
				for _, ch := range group {
					if matchChain(child, ch) {
						out = append(out, child)
						break
					}
				}
			}
			walk(child)
		}
	}
	walk(root)
	return out
}
