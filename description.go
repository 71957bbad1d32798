package homie5

import (
	"encoding/binary"
	"encoding/json"
	"iter"
	"maps"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

const (
	SettableDefault = false
	RetainedDefault = true
)

// PropertyDescription describes one property in a $description document.
type PropertyDescription struct {
	Name     string
	Datatype DataType
	Format   PropertyFormat
	Settable bool
	Retained bool
	Unit     string
}

// NewPropertyDescription returns a description with the default flags.
func NewPropertyDescription(dt DataType) PropertyDescription {
	return PropertyDescription{
		Datatype: dt,
		Format:   EmptyFormat{},
		Settable: SettableDefault,
		Retained: RetainedDefault,
	}
}

// FormatOrEmpty never returns nil.
func (p PropertyDescription) FormatOrEmpty() PropertyFormat {
	if p.Format == nil {
		return EmptyFormat{}
	}
	return p.Format
}

type propertyJSON struct {
	Name     string    `json:"name,omitempty"`
	Datatype *DataType `json:"datatype"`
	Format   *string   `json:"format,omitempty"`
	Settable *bool     `json:"settable,omitempty"`
	Retained *bool     `json:"retained,omitempty"`
	Unit     string    `json:"unit,omitempty"`
}

func (p PropertyDescription) MarshalJSON() ([]byte, error) {
	pj := propertyJSON{
		Name:     p.Name,
		Datatype: &p.Datatype,
		Settable: &p.Settable,
		Retained: &p.Retained,
		Unit:     p.Unit,
	}
	if f := p.FormatOrEmpty(); !f.IsEmpty() {
		s := f.String()
		pj.Format = &s
	}
	return json.Marshal(pj)
}

// UnmarshalJSON parses the format according to the datatype, which is
// required.  settable and retained take their defaults when absent.
func (p *PropertyDescription) UnmarshalJSON(data []byte) error {
	var pj propertyJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}

	if pj.Datatype == nil {
		return ErrInvalidDeviceDescription
	}

	out := NewPropertyDescription(*pj.Datatype)
	out.Name = pj.Name
	out.Unit = pj.Unit
	if pj.Settable != nil {
		out.Settable = *pj.Settable
	}
	if pj.Retained != nil {
		out.Retained = *pj.Retained
	}
	if pj.Format != nil {
		f, err := ParseFormat(*pj.Format, *pj.Datatype)
		if err != nil {
			return err
		}
		out.Format = f
	}

	*p = out
	return nil
}

// NodeDescription describes a node and its properties.
type NodeDescription struct {
	Name       string                          `json:"name,omitempty"`
	Type       string                          `json:"type,omitempty"`
	Properties map[HomieID]PropertyDescription `json:"properties,omitempty"`
}

// WithProperty looks up a property of the node.
func (n NodeDescription) WithProperty(propID HomieID) (PropertyDescription, bool) {
	p, ok := n.Properties[propID]
	return p, ok
}

// Clone returns a copy that shares no maps with n.
func (n NodeDescription) Clone() NodeDescription {
	n.Properties = maps.Clone(n.Properties)
	return n
}

// DeviceDescription is the $description document of a device.  Version is
// derived from the content by UpdateVersion and is not set by hand.
type DeviceDescription struct {
	Name       string                      `json:"name,omitempty"`
	Version    int64                       `json:"version"`
	Homie      string                      `json:"homie"`
	Type       string                      `json:"type,omitempty"`
	Children   []HomieID                   `json:"children,omitempty"`
	Root       HomieID                     `json:"root,omitempty"`
	Parent     HomieID                     `json:"parent,omitempty"`
	Extensions []string                    `json:"extensions,omitempty"`
	Nodes      map[HomieID]NodeDescription `json:"nodes,omitempty"`
}

// NewDeviceDescription returns an empty description for the current convention version.
func NewDeviceDescription() DeviceDescription {
	return DeviceDescription{Homie: HomieVersionFull}
}

// ParseDeviceDescription decodes a $description payload.
func ParseDeviceDescription(data []byte) (DeviceDescription, error) {
	d := NewDeviceDescription()
	if err := json.Unmarshal(data, &d); err != nil {
		return DeviceDescription{}, err
	}
	return d, nil
}

// Clone returns a deep copy.
func (d DeviceDescription) Clone() DeviceDescription {
	d.Children = slices.Clone(d.Children)
	d.Extensions = slices.Clone(d.Extensions)
	if d.Nodes != nil {
		nodes := make(map[HomieID]NodeDescription, len(d.Nodes))
		for id, n := range d.Nodes {
			nodes[id] = n.Clone()
		}
		d.Nodes = nodes
	}
	return d
}

func (d DeviceDescription) WithNode(ref NodeRef) (NodeDescription, bool) {
	return d.WithNodeByID(ref.ID)
}

func (d DeviceDescription) WithNodeByID(nodeID HomieID) (NodeDescription, bool) {
	n, ok := d.Nodes[nodeID]
	return n, ok
}

func (d DeviceDescription) WithProperty(ref PropertyRef) (PropertyDescription, bool) {
	return d.GetProperty(ref.Pointer)
}

func (d DeviceDescription) WithPropertyByID(nodeID, propID HomieID) (PropertyDescription, bool) {
	n, ok := d.Nodes[nodeID]
	if !ok {
		return PropertyDescription{}, false
	}
	return n.WithProperty(propID)
}

// GetProperty looks up the property at ptr.
func (d DeviceDescription) GetProperty(ptr PropertyPointer) (PropertyDescription, bool) {
	return d.WithPropertyByID(ptr.NodeID, ptr.PropID)
}

// AddChild appends id unless it is already listed.
func (d *DeviceDescription) AddChild(id HomieID) {
	if !slices.Contains(d.Children, id) {
		d.Children = append(d.Children, id)
	}
}

// RemoveChild removes id, keeping the order of the remaining children.
func (d *DeviceDescription) RemoveChild(id HomieID) {
	if i := slices.Index(d.Children, id); i >= 0 {
		d.Children = slices.Delete(d.Children, i, i+1)
	}
}

// PropertyEntry is one item of DeviceDescription.Iter.
type PropertyEntry struct {
	NodeID HomieID
	Node   NodeDescription
	PropID HomieID
	Prop   PropertyDescription
}

// Pointer returns the location of the entry's property.
func (e PropertyEntry) Pointer() PropertyPointer {
	return PropertyPointer{NodeID: e.NodeID, PropID: e.PropID}
}

// Iter yields every property of the device, ordered by node id and then
// property id.  Each call starts a fresh iteration.
func (d DeviceDescription) Iter() iter.Seq[PropertyEntry] {
	return func(yield func(PropertyEntry) bool) {
		for _, nodeID := range slices.Sorted(maps.Keys(d.Nodes)) {
			node := d.Nodes[nodeID]
			for _, propID := range slices.Sorted(maps.Keys(node.Properties)) {
				if !yield(PropertyEntry{NodeID: nodeID, Node: node, PropID: propID, Prop: node.Properties[propID]}) {
					return
				}
			}
		}
	}
}

// UpdateVersion recomputes Version from the description content.  Maps are
// walked in key order so equal content always yields the same version.
func (d *DeviceDescription) UpdateVersion() {
	h := versionHasher{d: xxhash.New()}
	h.device(d)
	d.Version = int64(h.d.Sum64())
}

type versionHasher struct {
	d *xxhash.Digest
}

func (h versionHasher) uint(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.d.Write(buf[:])
}

func (h versionHasher) str(s string) {
	h.uint(uint64(len(s)))
	h.d.WriteString(s)
}

func (h versionHasher) boolean(b bool) {
	if b {
		h.uint(1)
	} else {
		h.uint(0)
	}
}

func (h versionHasher) device(d *DeviceDescription) {
	h.str(d.Name)
	h.str(d.Homie)
	h.str(d.Type)
	h.uint(uint64(len(d.Children)))
	for _, c := range d.Children {
		h.str(string(c))
	}
	h.str(string(d.Root))
	h.str(string(d.Parent))
	h.uint(uint64(len(d.Extensions)))
	for _, e := range d.Extensions {
		h.str(e)
	}
	h.uint(uint64(len(d.Nodes)))
	for _, id := range slices.Sorted(maps.Keys(d.Nodes)) {
		h.str(string(id))
		h.node(d.Nodes[id])
	}
}

func (h versionHasher) node(n NodeDescription) {
	h.str(n.Name)
	h.str(n.Type)
	h.uint(uint64(len(n.Properties)))
	for _, id := range slices.Sorted(maps.Keys(n.Properties)) {
		h.str(string(id))
		h.property(n.Properties[id])
	}
}

func (h versionHasher) property(p PropertyDescription) {
	h.str(p.Name)
	h.uint(uint64(p.Datatype))
	h.format(p.FormatOrEmpty())
	h.boolean(p.Settable)
	h.boolean(p.Retained)
	h.str(p.Unit)
}

func (h versionHasher) format(f PropertyFormat) {
	switch v := f.(type) {
	case FloatRange:
		h.uint(1)
		for _, p := range []*float64{v.Min, v.Max, v.Step} {
			h.boolean(p != nil)
			if p != nil {
				h.uint(math.Float64bits(*p))
			}
		}
	case IntegerRange:
		h.uint(2)
		for _, p := range []*int64{v.Min, v.Max, v.Step} {
			h.boolean(p != nil)
			if p != nil {
				h.uint(uint64(*p))
			}
		}
	default:
		h.uint(3)
		h.str(f.String())
	}
}
