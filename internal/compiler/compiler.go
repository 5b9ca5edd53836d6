// Package compiler turns template declarations into cached, inert node trees
// with marker placeholders at every dynamic boundary.
package compiler

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/livefir/livepart/internal/descriptor"
	"github.com/livefir/livepart/internal/dom"
	lperrors "github.com/livefir/livepart/internal/errors"
	"github.com/livefir/livepart/internal/marker"
	"github.com/livefir/livepart/internal/memory"
	"github.com/livefir/livepart/internal/metrics"
)

// nodeOverhead approximates the in-memory size of one html.Node.
const nodeOverhead = 120

// Options configures a Compiler.
type Options struct {
	Protocol          *marker.Protocol
	ContainerTag      string
	FragmentContext   string
	KeyAttribute      string
	CompactWhitespace bool
	Memory            *memory.Manager
	Metrics           *metrics.Collector
	Logger            *slog.Logger
}

// Compiled is the cached, read-only result of compiling one template shape.
type Compiled struct {
	ID     string
	Root   *html.Node
	Markup string
	Slots  int

	// KeySlot is the value index feeding the key attribute of the root
	// element, or -1.
	KeySlot int
	// StaticKey is a literal key attribute on the root element.
	StaticKey    string
	HasStaticKey bool

	Size int64
}

// Clone returns a fresh copy of the compiled root for one instance.
func (c *Compiled) Clone() *html.Node {
	return dom.Clone(c.Root)
}

// Stats describes the compiled cache.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Compiler compiles templates and caches the result per template ID.
type Compiler struct {
	protocol     *marker.Protocol
	containerTag string
	contextTag   string
	keyAttr      string
	minifier     *minify.M

	mu     sync.RWMutex
	cache  map[string]*Compiled
	hits   int64
	misses int64

	memory  *memory.Manager
	metrics *metrics.Collector
	logger  *slog.Logger
}

// New creates a compiler.
func New(opts Options) *Compiler {
	if opts.Protocol == nil {
		opts.Protocol = marker.Default()
	}
	if opts.ContainerTag == "" {
		opts.ContainerTag = "lp-fragment"
	}
	if opts.FragmentContext == "" {
		opts.FragmentContext = "body"
	}
	if opts.KeyAttribute == "" {
		opts.KeyAttribute = "key"
	}
	if opts.Memory == nil {
		opts.Memory = memory.NewManager(nil)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Compiler{
		protocol:     opts.Protocol,
		containerTag: opts.ContainerTag,
		contextTag:   opts.FragmentContext,
		keyAttr:      opts.KeyAttribute,
		cache:        make(map[string]*Compiled),
		memory:       opts.Memory,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With("component", "compiler"),
	}

	if opts.CompactWhitespace {
		c.minifier = minify.New()
		c.minifier.Add("text/html", &minhtml.Minifier{
			KeepComments:     true,
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
	}

	return c
}

// Compile returns the compiled form of t, compiling it on first use. The
// returned root is shared and must be cloned before use.
func (c *Compiler) Compile(t *Template) (*Compiled, error) {
	c.mu.RLock()
	compiled, ok := c.cache[t.ID()]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		c.metrics.IncrementCacheHit()
		return compiled, nil
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	c.metrics.IncrementCacheMiss()

	compiled, err := c.compile(t)
	if err != nil {
		c.metrics.IncrementCompileError()
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.cache[t.ID()]; ok {
		// another goroutine compiled the same shape first
		c.mu.Unlock()
		return existing, nil
	}
	c.cache[t.ID()] = compiled
	c.mu.Unlock()

	c.metrics.IncrementCompiled()
	if level, changed := c.memory.Record(compiled.ID, compiled.Size); changed && level != memory.LevelOK {
		status := c.memory.GetMemoryStatus()
		c.logger.Warn("compiled template cache above budget threshold",
			"level", level,
			"bytes", status.CurrentUsage,
			"templates", status.Templates)
	}
	c.logger.Debug("compiled template", "id", compiled.ID, "slots", compiled.Slots, "bytes", compiled.Size)

	return compiled, nil
}

// Stats returns cache statistics.
func (c *Compiler) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Entries: len(c.cache), Hits: c.hits, Misses: c.misses}
}

func (c *Compiler) compile(t *Template) (*Compiled, error) {
	markup, kinds, err := c.join(t)
	if err != nil {
		return nil, err
	}

	if c.minifier != nil {
		compacted, err := c.minifier.String("text/html", markup)
		if err != nil {
			return nil, lperrors.Compilation("compile", err, "template %s: whitespace compaction failed", t.ID())
		}
		markup = compacted
	}

	context := &html.Node{
		Type:     html.ElementNode,
		Data:     c.contextTag,
		DataAtom: atom.Lookup([]byte(c.contextTag)),
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, lperrors.Compilation("compile", err, "template %s: markup cannot be parsed", t.ID())
	}

	root := c.normalize(nodes)

	compiled := &Compiled{
		ID:      t.ID(),
		Root:    root,
		Markup:  markup,
		Slots:   len(kinds),
		KeySlot: -1,
		Size:    int64(len(markup)) + countNodes(root)*nodeOverhead,
	}

	// extraction strips event attributes, so validate on a scratch copy
	scratch := dom.Clone(root)
	ds := descriptor.Extract(scratch, c.protocol)
	if len(ds) != len(kinds) {
		return nil, lperrors.Compilation("compile", nil,
			"template %s: found %d dynamic slots in parsed markup, expected %d (a value inside raw text, a partial attribute value or a value in attribute-name position cannot be bound)",
			t.ID(), len(ds), len(kinds))
	}
	for i, d := range ds {
		if !kindMatches(kinds[i], d.Kind) {
			return nil, lperrors.Compilation("compile", nil,
				"template %s: slot %d parsed as %s, expected %s", t.ID(), i, d.Kind, kinds[i])
		}
		if d.Kind == descriptor.Attr && d.Anchor == scratch && d.Name == c.keyAttr {
			compiled.KeySlot = i
		}
	}
	if root.Type == html.ElementNode {
		for _, a := range root.Attr {
			if a.Key == c.keyAttr && !c.protocol.IsPlaceholder(a.Val) {
				compiled.StaticKey = a.Val
				compiled.HasStaticKey = true
			}
		}
	}

	return compiled, nil
}

// join concatenates the segments, inserting a marker for every slot. It
// returns the expected kind of each slot.
func (c *Compiler) join(t *Template) (string, []descriptor.Kind, error) {
	var sb strings.Builder
	kinds := make([]descriptor.Kind, 0, t.Slots())
	last := len(t.segments) - 1

	for i, seg := range t.segments {
		sb.WriteString(seg)
		if i == last {
			break
		}

		inTag := insideTag(sb.String())
		quoted := inTag && (strings.HasSuffix(seg, `="`) || strings.HasSuffix(seg, `='`))
		unquoted := inTag && strings.HasSuffix(strings.TrimRight(seg, " \t\r\n\f"), "=")
		switch {
		case quoted || unquoted:
			if t.IsList(i) {
				return "", nil, lperrors.Compilation("compile", nil,
					"template %s: slot %d is declared as a list but sits in attribute position", t.ID(), i)
			}
			if quoted {
				sb.WriteString(c.protocol.Placeholder)
			} else {
				sb.WriteString(`"` + c.protocol.Placeholder + `"`)
			}
			kinds = append(kinds, descriptor.Attr)
		case t.IsList(i):
			sb.WriteString(c.protocol.ListComment())
			kinds = append(kinds, descriptor.List)
		default:
			sb.WriteString(c.protocol.NodeComment())
			kinds = append(kinds, descriptor.Value)
		}
	}

	return sb.String(), kinds, nil
}

// normalize reduces parsed fragment nodes to a single root node.
func (c *Compiler) normalize(nodes []*html.Node) *html.Node {
	var significant []*html.Node
	for _, n := range nodes {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) == "" {
			continue
		}
		significant = append(significant, n)
	}

	if len(significant) == 1 && significant[0].Type == html.ElementNode {
		return significant[0]
	}

	container := &html.Node{
		Type:     html.ElementNode,
		Data:     c.containerTag,
		DataAtom: atom.Lookup([]byte(c.containerTag)),
	}
	if len(significant) == 0 {
		return container
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		container.AppendChild(n)
	}
	return container
}

// insideTag reports whether markup ends inside an unfinished start tag. A '>'
// inside a quoted attribute value does not close the tag, and a '<' that is
// not followed by a tag name is text.
func insideTag(markup string) bool {
	inTag := false
	var quote byte
	for i := 0; i < len(markup); i++ {
		ch := markup[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case inTag:
			switch ch {
			case '"', '\'':
				quote = ch
			case '>':
				inTag = false
			}
		case ch == '<':
			rest := markup[i+1:]
			if strings.HasPrefix(rest, "!--") {
				end := strings.Index(rest[3:], "-->")
				if end < 0 {
					return false
				}
				i += 3 + end + 3
				continue
			}
			if len(rest) > 0 && isTagStart(rest[0]) {
				inTag = true
			}
		}
	}
	return inTag
}

func isTagStart(ch byte) bool {
	return ch == '/' || ch == '!' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func kindMatches(expected, got descriptor.Kind) bool {
	if expected == descriptor.Attr {
		return got == descriptor.Attr || got == descriptor.Event
	}
	return expected == got
}

func countNodes(n *html.Node) int64 {
	count := int64(1)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countNodes(c)
	}
	return count
}
