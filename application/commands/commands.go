// Package commands holds the typed, validated inputs of mindmap operations.
package commands

import (
	"fmt"
	"unicode/utf8"

	"mindmap-backend/domain/core/entities"
	pkgerrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/utils"
)

// Limits are the runtime-adjustable bounds on command inputs. Zero disables
// a bound.
type Limits struct {
	MaxTextLength      int
	MaxBranchSize      int
	MaxNodesPerMindmap int
}

// SaveMindmapCommand replaces a whole mindmap
type SaveMindmapCommand struct {
	MindmapID string            `json:"mindmap_id" validate:"required,max=128"`
	Mindmap   *entities.Mindmap `json:"mindmap" validate:"required"`
}

// Validate checks the payload and the tree invariants. The mindmap id is
// forced to MindmapID.
func (c *SaveMindmapCommand) Validate(l Limits) error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	c.Mindmap.ID = c.MindmapID
	if err := c.Mindmap.CheckConsistency(); err != nil {
		return pkgerrors.NewValidationError("mindmap is inconsistent: " + err.Error()).WithCause(err)
	}
	if l.MaxNodesPerMindmap > 0 && len(c.Mindmap.Nodes) > l.MaxNodesPerMindmap {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("mindmap has %d nodes, limit is %d", len(c.Mindmap.Nodes), l.MaxNodesPerMindmap))
	}
	for id, n := range c.Mindmap.Nodes {
		if err := checkText("nodes."+id+".text", n.Text, l); err != nil {
			return err
		}
	}
	return nil
}

// AddNodeCommand appends one child node
type AddNodeCommand struct {
	MindmapID string  `json:"mindmap_id" validate:"required,max=128"`
	ParentID  string  `json:"parent_id" validate:"required"`
	Text      *string `json:"text" validate:"required"`
}

// Validate validates the command
func (c *AddNodeCommand) Validate(l Limits) error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	return checkText("text", *c.Text, l)
}

// AddBranchCommand appends several children in order
type AddBranchCommand struct {
	MindmapID string   `json:"mindmap_id" validate:"required,max=128"`
	ParentID  string   `json:"parent_id" validate:"required"`
	Texts     []string `json:"texts" validate:"required"`
}

// Validate validates the command
func (c *AddBranchCommand) Validate(l Limits) error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if l.MaxBranchSize > 0 && len(c.Texts) > l.MaxBranchSize {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("texts must contain at most %d items", l.MaxBranchSize))
	}
	for i, text := range c.Texts {
		if err := checkText(fmt.Sprintf("texts[%d]", i), text, l); err != nil {
			return err
		}
	}
	return nil
}

// DeleteNodeCommand removes a node and its subtree
type DeleteNodeCommand struct {
	MindmapID string `json:"mindmap_id" validate:"required,max=128"`
	NodeID    string `json:"node_id" validate:"required"`
}

// Validate validates the command
func (c *DeleteNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdateNodeTextCommand overwrites a node label
type UpdateNodeTextCommand struct {
	MindmapID string  `json:"mindmap_id" validate:"required,max=128"`
	NodeID    string  `json:"node_id" validate:"required"`
	Text      *string `json:"text" validate:"required"`
}

// Validate validates the command
func (c *UpdateNodeTextCommand) Validate(l Limits) error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	return checkText("text", *c.Text, l)
}

// ToggleCollapseCommand flips the collapsed flag of a node
type ToggleCollapseCommand struct {
	MindmapID string `json:"mindmap_id" validate:"required,max=128"`
	NodeID    string `json:"node_id" validate:"required"`
}

// Validate validates the command
func (c *ToggleCollapseCommand) Validate() error {
	return utils.ValidateStruct(c)
}

func checkText(field, text string, l Limits) error {
	if l.MaxTextLength > 0 && utf8.RuneCountInString(text) > l.MaxTextLength {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("%s must be at most %d characters", field, l.MaxTextLength)).
			WithDetail("field", field)
	}
	return nil
}
