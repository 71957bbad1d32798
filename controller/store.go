package controller

import (
	"iter"
	"maps"
	"slices"

	"github.com/schaze/homie5"
)

// PropertyState is the last value and target seen for a property.  Either
// may be nil.
type PropertyState struct {
	Value  homie5.Value
	Target homie5.Value
}

// PropertyValueStore keeps property states grouped by node.  It is not
// safe for concurrent use; the Controller guards it.
type PropertyValueStore struct {
	nodes map[homie5.HomieID]map[homie5.HomieID]PropertyState
}

func NewPropertyValueStore() PropertyValueStore {
	return PropertyValueStore{nodes: make(map[homie5.HomieID]map[homie5.HomieID]PropertyState)}
}

// Store updates a property.  A nil value or target leaves the stored one
// unchanged.
func (s *PropertyValueStore) Store(ptr homie5.PropertyPointer, value, target homie5.Value) {
	if s.nodes == nil {
		s.nodes = make(map[homie5.HomieID]map[homie5.HomieID]PropertyState)
	}
	node, ok := s.nodes[ptr.NodeID]
	if !ok {
		node = make(map[homie5.HomieID]PropertyState)
		s.nodes[ptr.NodeID] = node
	}
	st := node[ptr.PropID]
	if value != nil {
		st.Value = value
	}
	if target != nil {
		st.Target = target
	}
	node[ptr.PropID] = st
}

func (s PropertyValueStore) State(ptr homie5.PropertyPointer) (PropertyState, bool) {
	st, ok := s.nodes[ptr.NodeID][ptr.PropID]
	return st, ok
}

func (s PropertyValueStore) Value(ptr homie5.PropertyPointer) (homie5.Value, bool) {
	st, ok := s.State(ptr)
	if !ok || st.Value == nil {
		return nil, false
	}
	return st.Value, true
}

func (s PropertyValueStore) Target(ptr homie5.PropertyPointer) (homie5.Value, bool) {
	st, ok := s.State(ptr)
	if !ok || st.Target == nil {
		return nil, false
	}
	return st.Target, true
}

func (s PropertyValueStore) PropertyExists(ptr homie5.PropertyPointer) bool {
	_, ok := s.State(ptr)
	return ok
}

// RemoveProperty drops a property, and its node once the node is empty.
func (s *PropertyValueStore) RemoveProperty(ptr homie5.PropertyPointer) {
	node, ok := s.nodes[ptr.NodeID]
	if !ok {
		return
	}
	delete(node, ptr.PropID)
	if len(node) == 0 {
		delete(s.nodes, ptr.NodeID)
	}
}

// Len returns the number of stored properties.
func (s PropertyValueStore) Len() int {
	n := 0
	for _, node := range s.nodes {
		n += len(node)
	}
	return n
}

// All yields the stored properties ordered by node and property id.
func (s PropertyValueStore) All() iter.Seq2[homie5.PropertyPointer, PropertyState] {
	return func(yield func(homie5.PropertyPointer, PropertyState) bool) {
		for _, nodeID := range slices.Sorted(maps.Keys(s.nodes)) {
			node := s.nodes[nodeID]
			for _, propID := range slices.Sorted(maps.Keys(node)) {
				if !yield(homie5.NewPropertyPointer(nodeID, propID), node[propID]) {
					return
				}
			}
		}
	}
}

// Clone returns a copy sharing no maps with s.
func (s PropertyValueStore) Clone() PropertyValueStore {
	out := NewPropertyValueStore()
	for id, node := range s.nodes {
		out.nodes[id] = maps.Clone(node)
	}
	return out
}
