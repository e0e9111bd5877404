package types

import (
	"encoding/json"
	"fmt"
)

/*
 * Rule tree types.
 *
 * RuleNode and GroupNode are produced by an external editing surface and consumed once per
 * compile call. The compiler never mutates them and never repairs them: a malformed tree is
 * rejected with a CompileError naming the offending node.
 *
 * Wire format: Node is a tagged union on "type" ("rule" | "group") so trees round-trip
 * through JSON files, gRPC Struct payloads and HTTP bodies unchanged.
 */

// NodeType tags a Node in its JSON form.
type NodeType string

const (
	NodeRule  NodeType = "rule"
	NodeGroup NodeType = "group"
)

// RuleNode is a single (field, operator, values) predicate.
type RuleNode struct {
	ID              NodeID          `json:"id,omitempty"`
	Field           string          `json:"field"`
	Operator        string          `json:"operator"`
	Values          []any           `json:"values"`
	OperatorOptions Options         `json:"operatorOptions,omitempty"`
	ValueOptions    map[int]Options `json:"valueOptions,omitempty"` // slot index -> options
}

// GroupNode is a boolean container of rules and groups.
type GroupNode struct {
	ID          NodeID `json:"id,omitempty"`
	Conjunction string `json:"conjunction,omitempty"` // empty = first declared conjunction
	Not         bool   `json:"not,omitempty"`
	Children    []Node `json:"children"`
}

// Node holds exactly one of Rule or Group.
type Node struct {
	Rule  *RuleNode
	Group *GroupNode
}

// ID returns the id of whichever node is set.
func (n Node) ID() NodeID {
	switch {
	case n.Rule != nil:
		return n.Rule.ID
	case n.Group != nil:
		return n.Group.ID
	default:
		return ""
	}
}

// MarshalJSON encodes the node with its "type" tag.
func (n Node) MarshalJSON() ([]byte, error) {
	switch {
	case n.Rule != nil:
		return json.Marshal(struct {
			Type NodeType `json:"type"`
			*RuleNode
		}{NodeRule, n.Rule})
	case n.Group != nil:
		return json.Marshal(struct {
			Type NodeType `json:"type"`
			*GroupNode
		}{NodeGroup, n.Group})
	default:
		return nil, ErrEmptyNode
	}
}

// UnmarshalJSON decodes a tagged node.
func (n *Node) UnmarshalJSON(data []byte) error {
	var head struct {
		Type NodeType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Type {
	case NodeRule:
		var r RuleNode
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*n = Node{Rule: &r}
	case NodeGroup:
		var g GroupNode
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		*n = Node{Group: &g}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNodeType, head.Type)
	}
	return nil
}

// NewRule builds a rule node with a fresh id.
func NewRule(field, operator string, values ...any) Node {
	if values == nil {
		values = []any{}
	}
	return Node{Rule: &RuleNode{
		ID:       NewNodeID(),
		Field:    field,
		Operator: operator,
		Values:   values,
	}}
}

// NewGroup builds a group node with a fresh id.
func NewGroup(conjunction string, children ...Node) *GroupNode {
	if children == nil {
		children = []Node{}
	}
	return &GroupNode{
		ID:          NewNodeID(),
		Conjunction: conjunction,
		Children:    children,
	}
}

// AsNode wraps a group as a child node.
func (g *GroupNode) AsNode() Node {
	return Node{Group: g}
}
