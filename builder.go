package homie5

import "slices"

// DeviceDescriptionBuilder assembles a DeviceDescription.  Every method
// returns an updated copy, so a builder value can be reused as a template.
type DeviceDescriptionBuilder struct {
	desc DeviceDescription
}

func NewDeviceDescriptionBuilder() DeviceDescriptionBuilder {
	return DeviceDescriptionBuilder{desc: NewDeviceDescription()}
}

// DeviceDescriptionBuilderFrom starts from a copy of an existing description.
func DeviceDescriptionBuilderFrom(d DeviceDescription) DeviceDescriptionBuilder {
	return DeviceDescriptionBuilder{desc: d.Clone()}
}

// Build returns the description with a freshly computed version.
func (b DeviceDescriptionBuilder) Build() DeviceDescription {
	d := b.desc.Clone()
	d.UpdateVersion()
	return d
}

func (b DeviceDescriptionBuilder) AddChild(id HomieID) DeviceDescriptionBuilder {
	b.desc = b.desc.Clone()
	b.desc.AddChild(id)
	return b
}

func (b DeviceDescriptionBuilder) RemoveChild(id HomieID) DeviceDescriptionBuilder {
	b.desc = b.desc.Clone()
	b.desc.RemoveChild(id)
	return b
}

func (b DeviceDescriptionBuilder) ReplaceChildren(children []HomieID) DeviceDescriptionBuilder {
	b.desc = b.desc.Clone()
	b.desc.Children = slices.Clone(children)
	return b
}

func (b DeviceDescriptionBuilder) AddExtension(ext string) DeviceDescriptionBuilder {
	b.desc = b.desc.Clone()
	b.desc.Extensions = append(b.desc.Extensions, ext)
	return b
}

// Parent sets the parent device id.  An empty id clears it.
func (b DeviceDescriptionBuilder) Parent(id HomieID) DeviceDescriptionBuilder {
	b.desc.Parent = id
	return b
}

// Root sets the root device id.  An empty id clears it.
func (b DeviceDescriptionBuilder) Root(id HomieID) DeviceDescriptionBuilder {
	b.desc.Root = id
	return b
}

func (b DeviceDescriptionBuilder) Name(name string) DeviceDescriptionBuilder {
	b.desc.Name = name
	return b
}

func (b DeviceDescriptionBuilder) Type(t string) DeviceDescriptionBuilder {
	b.desc.Type = t
	return b
}

func (b DeviceDescriptionBuilder) AddNode(id HomieID, node NodeDescription) DeviceDescriptionBuilder {
	b.desc = b.desc.Clone()
	if b.desc.Nodes == nil {
		b.desc.Nodes = make(map[HomieID]NodeDescription)
	}
	b.desc.Nodes[id] = node.Clone()
	return b
}

func (b DeviceDescriptionBuilder) RemoveNode(id HomieID) DeviceDescriptionBuilder {
	b.desc = b.desc.Clone()
	delete(b.desc.Nodes, id)
	return b
}

// ReplaceOrInsertNode stores fn's result under id.  fn receives the current
// node, or nil if there is none.
func (b DeviceDescriptionBuilder) ReplaceOrInsertNode(id HomieID, fn func(existing *NodeDescription) NodeDescription) DeviceDescriptionBuilder {
	var existing *NodeDescription
	if n, ok := b.desc.Nodes[id]; ok {
		n = n.Clone()
		existing = &n
	}
	return b.AddNode(id, fn(existing))
}

// DoIf applies fn only when cond holds.
func (b DeviceDescriptionBuilder) DoIf(cond bool, fn func(DeviceDescriptionBuilder) DeviceDescriptionBuilder) DeviceDescriptionBuilder {
	if cond {
		return fn(b)
	}
	return b
}

// NodeDescriptionBuilder assembles a NodeDescription.
type NodeDescriptionBuilder struct {
	desc NodeDescription
}

func NewNodeDescriptionBuilder() NodeDescriptionBuilder {
	return NodeDescriptionBuilder{}
}

func NodeDescriptionBuilderFrom(n NodeDescription) NodeDescriptionBuilder {
	return NodeDescriptionBuilder{desc: n.Clone()}
}

func (b NodeDescriptionBuilder) Build() NodeDescription {
	return b.desc.Clone()
}

func (b NodeDescriptionBuilder) Name(name string) NodeDescriptionBuilder {
	b.desc.Name = name
	return b
}

func (b NodeDescriptionBuilder) Type(t string) NodeDescriptionBuilder {
	b.desc.Type = t
	return b
}

func (b NodeDescriptionBuilder) AddProperty(id HomieID, prop PropertyDescription) NodeDescriptionBuilder {
	b.desc = b.desc.Clone()
	if b.desc.Properties == nil {
		b.desc.Properties = make(map[HomieID]PropertyDescription)
	}
	b.desc.Properties[id] = prop
	return b
}

// AddPropertyCond adds the property built by fn only when cond holds.
func (b NodeDescriptionBuilder) AddPropertyCond(id HomieID, cond bool, fn func() PropertyDescription) NodeDescriptionBuilder {
	if !cond {
		return b
	}
	return b.AddProperty(id, fn())
}

func (b NodeDescriptionBuilder) RemoveProperty(id HomieID) NodeDescriptionBuilder {
	b.desc = b.desc.Clone()
	delete(b.desc.Properties, id)
	return b
}

func (b NodeDescriptionBuilder) ReplaceOrInsertProperty(id HomieID, fn func(existing *PropertyDescription) PropertyDescription) NodeDescriptionBuilder {
	var existing *PropertyDescription
	if p, ok := b.desc.Properties[id]; ok {
		existing = &p
	}
	return b.AddProperty(id, fn(existing))
}

func (b NodeDescriptionBuilder) DoIf(cond bool, fn func(NodeDescriptionBuilder) NodeDescriptionBuilder) NodeDescriptionBuilder {
	if cond {
		return fn(b)
	}
	return b
}

// PropertyDescriptionBuilder assembles a PropertyDescription.
type PropertyDescriptionBuilder struct {
	desc PropertyDescription
}

func NewPropertyDescriptionBuilder(dt DataType) PropertyDescriptionBuilder {
	return PropertyDescriptionBuilder{desc: NewPropertyDescription(dt)}
}

func PropertyDescriptionBuilderFrom(p PropertyDescription) PropertyDescriptionBuilder {
	return PropertyDescriptionBuilder{desc: p}
}

func (b PropertyDescriptionBuilder) Build() PropertyDescription {
	return b.desc
}

func (b PropertyDescriptionBuilder) Format(f PropertyFormat) PropertyDescriptionBuilder {
	if f == nil {
		f = EmptyFormat{}
	}
	b.desc.Format = f
	return b
}

func (b PropertyDescriptionBuilder) Name(name string) PropertyDescriptionBuilder {
	b.desc.Name = name
	return b
}

func (b PropertyDescriptionBuilder) Settable(settable bool) PropertyDescriptionBuilder {
	b.desc.Settable = settable
	return b
}

func (b PropertyDescriptionBuilder) Retained(retained bool) PropertyDescriptionBuilder {
	b.desc.Retained = retained
	return b
}

func (b PropertyDescriptionBuilder) Unit(unit string) PropertyDescriptionBuilder {
	b.desc.Unit = unit
	return b
}

func (b PropertyDescriptionBuilder) Datatype(dt DataType) PropertyDescriptionBuilder {
	b.desc.Datatype = dt
	return b
}

func (b PropertyDescriptionBuilder) DoIf(cond bool, fn func(PropertyDescriptionBuilder) PropertyDescriptionBuilder) PropertyDescriptionBuilder {
	if cond {
		return fn(b)
	}
	return b
}
