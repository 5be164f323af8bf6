// Package models defines the core domain models for flow and campaign execution.
package models

import (
	"time"
)

// NodeType identifies the executor responsible for a flow node.
type NodeType string

const (
	NodeTypeStart          NodeType = "start"
	NodeTypeSendMessage    NodeType = "send_message"
	NodeTypeSendMedia      NodeType = "send_media"
	NodeTypeWait           NodeType = "wait"
	NodeTypeCondition      NodeType = "condition"
	NodeTypeWebhook        NodeType = "webhook"
	NodeTypeCreateCampaign NodeType = "create_campaign"
	NodeTypeEnd            NodeType = "end"
)

// FlowNode is a single typed node in a flow graph. Data carries the
// node-specific payload interpreted by the matching executor.
type FlowNode struct {
	ID   string         `json:"id"   validate:"required"`
	Type NodeType       `json:"type" validate:"required"`
	Data map[string]any `json:"data"`
}

// FlowEdge connects two nodes. SourceHandle is the optional branch label
// (e.g. "true"/"false" out of a condition node).
type FlowEdge struct {
	ID           string `json:"id"     validate:"required"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// Flow is a user-authored automation graph. The engine treats it as
// read-only: it is loaded eagerly with an execution and never mutated.
type Flow struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id" validate:"required"`
	Name      string      `json:"name"     validate:"required,min=3"`
	Nodes     []*FlowNode `json:"nodes"`
	Edges     []*FlowEdge `json:"edges"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StartNode returns the flow's single entry node, or nil if the flow has
// no start node.
func (f *Flow) StartNode() *FlowNode {
	for _, node := range f.Nodes {
		if node.Type == NodeTypeStart {
			return node
		}
	}

	return nil
}

// NodeByID looks up a node by its ID.
func (f *Flow) NodeByID(id string) *FlowNode {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// EdgesFrom returns the outgoing edges of a node. When handle is non-empty
// only edges whose source handle matches are returned; otherwise every
// outgoing edge is returned regardless of its handle.
func (f *Flow) EdgesFrom(nodeID, handle string) []*FlowEdge {
	edges := make([]*FlowEdge, 0)

	for _, edge := range f.Edges {
		if edge.Source != nodeID {
			continue
		}

		if handle != "" && edge.SourceHandle != handle {
			continue
		}

		edges = append(edges, edge)
	}

	return edges
}
