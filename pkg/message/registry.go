package message

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/sirupsen/logrus"

	"github.com/irctrakz/vwproto/pkg/logging"
	"github.com/irctrakz/vwproto/pkg/sdata"
)

// Shape describes one concrete variant layout within a family, discriminated
// from its siblings by key presence rather than a wire tag. Keys must all be
// present and Absent keys must all be missing for the shape to match. The
// predicate is pure data so adding a shape is a table edit, not a
// control-flow edit.
type Shape struct {
	// Name identifies the shape in errors, e.g. "request" or "reply".
	Name string

	// Keys are the discriminating keys that must be present.
	Keys []string

	// Absent are keys that must not be present. Used when a sibling shape's
	// discriminating key would otherwise also match.
	Absent []string

	// Factory constructs an empty instance of the shape's variant.
	Factory func() Message
}

func (s Shape) matches(env sdata.Map) bool {
	for _, k := range s.Keys {
		if !env.Has(k) {
			return false
		}
	}
	for _, k := range s.Absent {
		if env.Has(k) {
			return false
		}
	}
	return true
}

// family is an ordered set of shapes sharing one type-tag. Order is
// significant: discriminating key sets are not provably disjoint on this
// protocol, and the wire behavior is first-matching-shape-wins.
type family struct {
	tag    string
	shapes []Shape
}

func (f *family) match(env sdata.Map) *Shape {
	for i := range f.shapes {
		if f.shapes[i].matches(env) {
			return &f.shapes[i]
		}
	}
	return nil
}

// Registry maps wire type-tags to message families. Registration happens at
// startup; Decode is safe for concurrent use from any number of receive
// goroutines.
type Registry struct {
	families *xsync.Map[string, *family]
	log      *logrus.Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		families: xsync.NewMap[string, *family](),
		log:      logging.Component("message"),
	}
}

// Register installs a family under tag. Shapes are tried in the given order
// on decode. Registering a duplicate tag or a shape without a factory is a
// startup configuration error.
func (r *Registry) Register(tag string, shapes ...Shape) error {
	if tag == "" {
		return fmt.Errorf("message: register: empty tag")
	}
	if len(shapes) == 0 {
		return fmt.Errorf("message: register %q: no shapes", tag)
	}
	for _, s := range shapes {
		if s.Factory == nil {
			return fmt.Errorf("message: register %q: shape %q has no factory", tag, s.Name)
		}
	}
	fam := &family{tag: tag, shapes: shapes}
	if _, loaded := r.families.LoadOrStore(tag, fam); loaded {
		return fmt.Errorf("message: register %q: duplicate tag", tag)
	}
	return nil
}

// Tags returns the registered type-tags.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, r.families.Size())
	r.families.Range(func(tag string, _ *family) bool {
		tags = append(tags, tag)
		return true
	})
	return tags
}

// Decode instantiates and populates the concrete variant for an envelope.
// An unregistered tag fails with ErrUnknownMessageType; an envelope matching
// no shape, or failing a shape's field decode, fails with *DecodeError. Both
// are per-message failures and leave the registry untouched.
func (r *Registry) Decode(tag string, env sdata.Map) (Message, error) {
	fam, ok := r.families.Load(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, tag)
	}
	shape := fam.match(env)
	if shape == nil {
		return nil, &DecodeError{
			Family: tag,
			Shape:  "?",
			Reason: fmt.Sprintf("no shape matches envelope keys %v", env.Keys()),
		}
	}
	msg := shape.Factory()
	if err := msg.Deserialize(env); err != nil {
		return nil, err
	}
	return msg, nil
}
