package render

import (
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/MNasiifu/automobile-association-sub000/certerrors"
	"github.com/MNasiifu/automobile-association-sub000/compose"
	"github.com/MNasiifu/automobile-association-sub000/permit"
)

// HiddenStyle keeps a mount out of view and out of reach of input.
const HiddenStyle = "opacity:0;pointer-events:none;position:fixed;left:-10000px;top:0;z-index:-1"

// Target is where a composed document is mounted for capture.
type Target interface {
	Attach(doc *compose.Document) (*Mount, error)
	Detach(m *Mount)
}

// Surface is an off-screen working area. Mounts are appended to its
// container and removed on Detach. Safe for concurrent use.
type Surface struct {
	mu        sync.Mutex
	container *html.Node
	mounts    map[*html.Node]*Mount
	decoded   *decodedCache
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	return &Surface{
		container: &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body},
		mounts:    map[*html.Node]*Mount{},
		decoded:   newDecodedCache(64),
	}
}

// Attach clones doc and mounts the clone hidden. A document without the
// certificate root is rejected as malformed.
func (s *Surface) Attach(doc *compose.Document) (*Mount, error) {
	m, err := NewMount(doc)
	if err != nil {
		return nil, err
	}
	m.decoded = s.decoded

	s.mu.Lock()
	s.container.AppendChild(m.node)
	s.mounts[m.node] = m
	m.attached = true
	s.mu.Unlock()
	return m, nil
}

// Detach removes m from the surface. It is idempotent.
func (s *Surface) Detach(m *Mount) {
	if m == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.node.Parent == s.container {
		s.container.RemoveChild(m.node)
	}
	delete(s.mounts, m.node)
	m.mu.Lock()
	m.attached = false
	m.mu.Unlock()
}

// Children returns the mounts currently attached, in attach order.
func (s *Surface) Children() []*Mount {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Mount
	for c := s.container.FirstChild; c != nil; c = c.NextSibling {
		if m, ok := s.mounts[c]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Mount is one attached document.
type Mount struct {
	ID        string
	Document  *compose.Document
	Root      *html.Node
	MountedAt time.Time

	node    *html.Node
	decoded *decodedCache

	mu       sync.Mutex
	attached bool
	images   map[*html.Node]*ImageState
	order    []*html.Node
}

// NewMount wraps a clone of doc in a hidden mount node. Targets other than
// Surface use it to build mounts with the same checks.
func NewMount(doc *compose.Document) (*Mount, error) {
	if doc == nil {
		return nil, certerrors.New(certerrors.CodeCompositionMalformed, "no document to mount")
	}
	clone := doc.Clone()
	root := clone.Root()
	if root == nil {
		return nil, certerrors.New(certerrors.CodeCompositionMalformed, "composed document has no #"+compose.RootID+" element")
	}

	id := uuid.NewString()
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: "render-mount"},
			{Key: "data-mount-id", Val: id},
			{Key: "style", Val: HiddenStyle},
			{Key: "aria-hidden", Val: "true"},
		},
	}
	if clone.Body != nil {
		node.AppendChild(clone.Body)
	}

	m := &Mount{
		ID:        id,
		Document:  clone,
		Root:      root,
		MountedAt: time.Now(),
		node:      node,
		images:    map[*html.Node]*ImageState{},
	}
	for _, img := range compose.Images(root) {
		m.images[img] = &ImageState{Src: compose.Attr(img, "src")}
		m.order = append(m.order, img)
	}
	return m, nil
}

// Node returns the mount wrapper element.
func (m *Mount) Node() *html.Node { return m.node }

// Style returns the style attribute of the wrapper.
func (m *Mount) Style() string { return compose.Attr(m.node, "style") }

// IsAttached reports whether the mount is still on its surface.
func (m *Mount) IsAttached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached
}

// Images returns the image states in document order.
func (m *Mount) Images() []ImageState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ImageState, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, *m.images[n])
	}
	return out
}

// Counts tallies image outcomes.
func (m *Mount) Counts() map[ImageOutcome]int {
	out := map[ImageOutcome]int{}
	for _, st := range m.Images() {
		out[st.Outcome]++
	}
	return out
}

// Image implements layout.ImageSource. Only loaded images are painted.
func (m *Mount) Image(n *html.Node) (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.images[n]
	if !ok || st.Outcome != ImageLoaded {
		return nil, false
	}
	return st.Image, true
}

func (m *Mount) settle(n *html.Node, st ImageState) {
	m.mu.Lock()
	*m.images[n] = st
	m.mu.Unlock()
}

// ImageOutcome is how an image settled.
type ImageOutcome int

const (
	ImagePending ImageOutcome = iota
	ImageLoaded
	ImageFailed
	ImageTimedOut
)

func (o ImageOutcome) String() string {
	switch o {
	case ImageLoaded:
		return "loaded"
	case ImageFailed:
		return "failed"
	case ImageTimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// ImageState is the settle record of one <img>.
type ImageState struct {
	Src     string
	Outcome ImageOutcome
	Image   image.Image
	Err     error
	Elapsed time.Duration
	Cached  bool
}

// decodedCache remembers decoded images by source digest so a source seen
// before settles immediately. It is reset when full.
type decodedCache struct {
	mu    sync.Mutex
	max   int
	items map[string]image.Image
}

func newDecodedCache(max int) *decodedCache {
	return &decodedCache{max: max, items: map[string]image.Image{}}
}

func (c *decodedCache) get(src string) (image.Image, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.items[permit.Digest([]byte(src))]
	return img, ok
}

func (c *decodedCache) put(src string, img image.Image) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.max {
		c.items = map[string]image.Image{}
	}
	c.items[permit.Digest([]byte(src))] = img
}
