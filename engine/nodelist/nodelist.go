package nodelist

import (
	"fmt"
	"sort"
)

// NodeType is the type of relay nodes of a domain
type NodeType uint8

const (
	// AvatarMixer relays avatar data, identities and traits
	AvatarMixer NodeType = iota + 1
	// AudioMixer relays audio streams
	AudioMixer
	// EntityServer serves octree entities
	EntityServer
	// MessagesMixer relays text messages
	MessagesMixer
)

func (t NodeType) String() string {
	switch t {
	case AvatarMixer:
		return "AvatarMixer"
	case AudioMixer:
		return "AudioMixer"
	case EntityServer:
		return "EntityServer"
	case MessagesMixer:
		return "MessagesMixer"
	}
	return fmt.Sprintf("NodeType<%d>", uint8(t))
}

// Node is one relay node the client is connected to
type Node struct {
	ID   uint16
	Type NodeType
	Addr string

	// Tag is owned by the transport, e.g. the links to the node
	Tag interface{}
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d<%s>", n.Type, n.ID, n.Addr)
}

// NodeList is the set of relay nodes known to a session
//
// NodeList is not safe for concurrent use; it is owned by the session logic loop.
type NodeList struct {
	nodes map[uint16]*Node
}

// New creates an empty NodeList
func New() *NodeList {
	return &NodeList{nodes: map[uint16]*Node{}}
}

// Add adds or replaces node
func (nl *NodeList) Add(node *Node) {
	nl.nodes[node.ID] = node
}

// Remove removes the node of id, returns the removed node or nil
func (nl *NodeList) Remove(id uint16) *Node {
	node := nl.nodes[id]
	delete(nl.nodes, id)
	return node
}

// Get returns the node of id or nil
func (nl *NodeList) Get(id uint16) *Node {
	return nl.nodes[id]
}

// Len returns the number of nodes
func (nl *NodeList) Len() int {
	return len(nl.nodes)
}

// Each calls f for each node of type t in ascending id order
func (nl *NodeList) Each(t NodeType, f func(node *Node)) {
	ids := make([]int, 0, len(nl.nodes))
	for id, node := range nl.nodes {
		if node.Type == t {
			ids = append(ids, int(id))
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		f(nl.nodes[uint16(id)])
	}
}

// First returns the node of type t with the lowest id, or nil
func (nl *NodeList) First(t NodeType) *Node {
	var first *Node
	nl.Each(t, func(node *Node) {
		if first == nil {
			first = node
		}
	})
	return first
}
