// Package marker defines the textual convention used to mark dynamic slots
// inside raw template markup before it is parsed.
//
// A node slot is a comment whose text is the node token, a list slot is a
// comment whose text is the list token and an attribute or event slot is an
// attribute whose value is exactly the placeholder token. Event slots are
// recognized by one of two attribute name prefixes.
package marker

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Default tokens.
const (
	DefaultNode         = "lp-node"
	DefaultList         = "lp-list"
	DefaultPlaceholder  = "lp-attr"
	DefaultNativePrefix = "on"
	DefaultCustomPrefix = "@"
)

// Protocol is one marker convention. It is stable for the lifetime of an
// engine; a compiled template is only meaningful to the protocol that built it.
type Protocol struct {
	Node         string
	List         string
	Placeholder  string
	NativePrefix string
	CustomPrefix string

	// eventPattern matches "<native>name" or "<custom>name"
	eventPattern *regexp.Regexp
}

// Default returns the default protocol.
func Default() *Protocol {
	p, _ := New(DefaultNode, DefaultList, DefaultPlaceholder, DefaultNativePrefix, DefaultCustomPrefix)
	return p
}

// New builds a protocol from its tokens.
func New(node, list, placeholder, nativePrefix, customPrefix string) (*Protocol, error) {
	if node == "" || list == "" || placeholder == "" {
		return nil, fmt.Errorf("marker tokens must not be empty")
	}
	if node == list {
		return nil, fmt.Errorf("node and list markers must differ: %q", node)
	}
	if strings.Contains(node, "--") || strings.Contains(list, "--") {
		return nil, fmt.Errorf("marker tokens must not contain \"--\"")
	}
	if strings.ContainsAny(placeholder, "\"'<>") {
		return nil, fmt.Errorf("placeholder %q must not contain quotes or angle brackets", placeholder)
	}

	var alts []string
	for _, prefix := range []string{nativePrefix, customPrefix} {
		if prefix != "" {
			alts = append(alts, regexp.QuoteMeta(prefix))
		}
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("at least one event prefix is required")
	}

	return &Protocol{
		Node:         node,
		List:         list,
		Placeholder:  placeholder,
		NativePrefix: nativePrefix,
		CustomPrefix: customPrefix,
		eventPattern: regexp.MustCompile(`^(?:` + strings.Join(alts, "|") + `)(.+)$`),
	}, nil
}

// NodeComment returns the markup inserted for a node slot.
func (p *Protocol) NodeComment() string {
	return "<!--" + p.Node + "-->"
}

// ListComment returns the markup inserted for a list slot.
func (p *Protocol) ListComment() string {
	return "<!--" + p.List + "-->"
}

// IsNode reports whether n is a node-slot marker comment.
func (p *Protocol) IsNode(n *html.Node) bool {
	return n != nil && n.Type == html.CommentNode && n.Data == p.Node
}

// IsList reports whether n is a list-slot marker comment.
func (p *Protocol) IsList(n *html.Node) bool {
	return n != nil && n.Type == html.CommentNode && n.Data == p.List
}

// IsPlaceholder reports whether an attribute value marks a dynamic attribute.
func (p *Protocol) IsPlaceholder(val string) bool {
	return val == p.Placeholder
}

// EventName returns the event bound by an attribute name, if the name uses one
// of the event prefixes.
func (p *Protocol) EventName(attr string) (string, bool) {
	m := p.eventPattern.FindStringSubmatch(attr)
	if m == nil {
		return "", false
	}
	return m[1], true
}
