package ui

import (
	"context"
	"strings"
	"sync"

	"billed/internal/core"
)

// Node is an in-memory Element.
type Node struct {
	Tag string

	mu        sync.Mutex
	attrs     map[string]string
	value     string
	files     []core.ProofFile
	listeners map[string][]Listener
}

var _ Element = (*Node)(nil)

// NewNode creates a node with attributes given as name/value pairs.
func NewNode(tag string, attrs ...string) *Node {
	n := &Node{
		Tag:       strings.ToLower(tag),
		attrs:     make(map[string]string, len(attrs)/2),
		listeners: map[string][]Listener{},
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.attrs[attrs[i]] = attrs[i+1]
	}
	return n
}

// TestID is a shortcut for a node carrying a data-testid attribute.
func TestID(tag, id string, attrs ...string) *Node {
	return NewNode(tag, append([]string{"data-testid", id}, attrs...)...)
}

func (n *Node) Attribute(name string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attrs[name]
}

func (n *Node) SetAttribute(name, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attrs[name] = value
}

func (n *Node) Value() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

// SetValue sets the value. An empty value also drops selected files,
// like clearing a file input in a browser.
func (n *Node) SetValue(v string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.value = v
	if v == "" {
		n.files = nil
	}
}

func (n *Node) Files() []core.ProofFile {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.ProofFile(nil), n.files...)
}

// SetFiles selects files on a file input. The value becomes the fake path
// of the first file.
func (n *Node) SetFiles(files ...core.ProofFile) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.files = append([]core.ProofFile(nil), files...)
	n.value = ""
	if len(files) > 0 {
		n.value = `C:\fakepath\` + core.ProofFileName(files[0].Name)
	}
}

func (n *Node) AddEventListener(eventType string, l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners[eventType] = append(n.listeners[eventType], l)
}

// Dispatch runs the listeners registered for ev.Type in registration order.
func (n *Node) Dispatch(ctx context.Context, ev *Event) {
	if ev.Target == nil {
		ev.Target = n
	}
	n.mu.Lock()
	ls := append([]Listener(nil), n.listeners[ev.Type]...)
	n.mu.Unlock()
	for _, l := range ls {
		l(ctx, ev)
	}
}

// Listeners returns how many listeners are bound for eventType.
func (n *Node) Listeners(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners[eventType])
}

// Click dispatches a click event.
func (n *Node) Click(ctx context.Context) {
	n.Dispatch(ctx, &Event{Type: EventClick})
}

// Page is an in-memory Document holding a flat list of nodes.
type Page struct {
	mu    sync.Mutex
	nodes []*Node
}

var _ Document = (*Page)(nil)

func NewPage(nodes ...*Node) *Page {
	return &Page{nodes: nodes}
}

// Append adds nodes to the page.
func (p *Page) Append(nodes ...*Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes = append(p.nodes, nodes...)
}

// QueryElement returns the first node matching selector, or nil.
func (p *Page) QueryElement(selector string) Element {
	if n := p.Query(selector); n != nil {
		return n
	}
	return nil
}

// Query is QueryElement returning the concrete node.
func (p *Page) Query(selector string) *Node {
	sel := parseSelector(selector)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.nodes {
		if sel.matches(n) {
			return n
		}
	}
	return nil
}

func (p *Page) QueryAll(selector string) []Element {
	sel := parseSelector(selector)
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Element
	for _, n := range p.nodes {
		if sel.matches(n) {
			out = append(out, n)
		}
	}
	return out
}

// selector supports `tag`, `[attr="value"]` and `tag[attr="value"]`.
type selector struct {
	tag   string
	attr  string
	value string
}

func parseSelector(s string) selector {
	s = strings.TrimSpace(s)
	i := strings.IndexByte(s, '[')
	if i < 0 || !strings.HasSuffix(s, "]") {
		return selector{tag: strings.ToLower(s)}
	}
	sel := selector{tag: strings.ToLower(s[:i])}
	inner := s[i+1 : len(s)-1]
	name, value, found := strings.Cut(inner, "=")
	sel.attr = strings.TrimSpace(name)
	if found {
		sel.value = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return sel
}

func (s selector) matches(n *Node) bool {
	if s.tag != "" && s.tag != n.Tag {
		return false
	}
	if s.attr == "" {
		return true
	}
	n.mu.Lock()
	v, ok := n.attrs[s.attr]
	n.mu.Unlock()
	if !ok {
		return false
	}
	return s.value == "" || v == s.value
}

// HTMLModal records what the Bills container puts in the proof modal.
type HTMLModal struct {
	mu      sync.Mutex
	width   int
	content string
	shown   bool
}

var _ Modal = (*HTMLModal)(nil)

// NewHTMLModal returns a modal measuring width pixels.
func NewHTMLModal(width int) *HTMLModal {
	return &HTMLModal{width: width}
}

func (m *HTMLModal) Width() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width
}

func (m *HTMLModal) SetContent(html string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = html
}

func (m *HTMLModal) Show() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown = true
}

// Content returns the last content set.
func (m *HTMLModal) Content() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content
}

// Shown reports whether Show was called.
func (m *HTMLModal) Shown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown
}
