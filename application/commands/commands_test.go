package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmap-backend/domain/core/entities"
	pkgerrors "mindmap-backend/pkg/errors"
)

func ptr(s string) *string { return &s }

var testLimits = Limits{MaxTextLength: 10, MaxBranchSize: 3, MaxNodesPerMindmap: 12}

func TestAddNodeCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     AddNodeCommand
		wantErr bool
		errMsg  string
	}{
		{name: "valid", cmd: AddNodeCommand{MindmapID: "m", ParentID: "root", Text: ptr("Idea")}},
		{name: "empty text allowed", cmd: AddNodeCommand{MindmapID: "m", ParentID: "root", Text: ptr("")}},
		{name: "missing text", cmd: AddNodeCommand{MindmapID: "m", ParentID: "root"}, wantErr: true, errMsg: "text is required"},
		{name: "missing parent", cmd: AddNodeCommand{MindmapID: "m", Text: ptr("x")}, wantErr: true, errMsg: "parent_id is required"},
		{name: "missing mindmap", cmd: AddNodeCommand{ParentID: "root", Text: ptr("x")}, wantErr: true, errMsg: "mindmap_id is required"},
		{name: "text too long", cmd: AddNodeCommand{MindmapID: "m", ParentID: "root", Text: ptr("0123456789a")}, wantErr: true, errMsg: "at most 10 characters"},
		{name: "multibyte counted by rune", cmd: AddNodeCommand{MindmapID: "m", ParentID: "root", Text: ptr("éééééééééé")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate(testLimits)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAddBranchCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		wantErr bool
		errMsg  string
	}{
		{name: "valid", texts: []string{"a", "b", "c"}},
		{name: "empty list allowed", texts: []string{}},
		{name: "missing list", texts: nil, wantErr: true, errMsg: "texts is required"},
		{name: "too many", texts: []string{"a", "b", "c", "d"}, wantErr: true, errMsg: "at most 3 items"},
		{name: "long item", texts: []string{"a", strings.Repeat("x", 11)}, wantErr: true, errMsg: "texts[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := AddBranchCommand{MindmapID: "m", ParentID: "root", Texts: tt.texts}
			err := cmd.Validate(testLimits)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNodeCommands_Validate(t *testing.T) {
	assert.NoError(t, (&DeleteNodeCommand{MindmapID: "m", NodeID: "n"}).Validate())
	assert.True(t, pkgerrors.IsValidation((&DeleteNodeCommand{MindmapID: "m"}).Validate()))
	assert.NoError(t, (&ToggleCollapseCommand{MindmapID: "m", NodeID: "n"}).Validate())
	assert.True(t, pkgerrors.IsValidation((&ToggleCollapseCommand{NodeID: "n"}).Validate()))

	assert.NoError(t, (&UpdateNodeTextCommand{MindmapID: "m", NodeID: "n", Text: ptr("ok")}).Validate(testLimits))
	assert.True(t, pkgerrors.IsValidation((&UpdateNodeTextCommand{MindmapID: "m", NodeID: "n"}).Validate(testLimits)))
}

func TestSaveMindmapCommand_Validate(t *testing.T) {
	t.Run("forces id from path", func(t *testing.T) {
		m := entities.NewSampleMindmap(time.Now())
		for _, n := range m.Nodes {
			n.Text = "short"
		}
		cmd := SaveMindmapCommand{MindmapID: "from-path", Mindmap: m}
		require.NoError(t, cmd.Validate(Limits{}))
		assert.Equal(t, "from-path", cmd.Mindmap.ID)
	})

	t.Run("missing mindmap", func(t *testing.T) {
		cmd := SaveMindmapCommand{MindmapID: "x"}
		assert.True(t, pkgerrors.IsValidation(cmd.Validate(Limits{})))
	})

	t.Run("inconsistent tree", func(t *testing.T) {
		m := entities.NewSampleMindmap(time.Now())
		m.Nodes["goals"].Children = append(m.Nodes["goals"].Children, "ghost")
		cmd := SaveMindmapCommand{MindmapID: "x", Mindmap: m}
		err := cmd.Validate(Limits{})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
		assert.Contains(t, err.Error(), "inconsistent")
	})

	t.Run("too many nodes", func(t *testing.T) {
		cmd := SaveMindmapCommand{MindmapID: "x", Mindmap: entities.NewSampleMindmap(time.Now())}
		err := cmd.Validate(Limits{MaxNodesPerMindmap: 5})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("long node text", func(t *testing.T) {
		cmd := SaveMindmapCommand{MindmapID: "x", Mindmap: entities.NewSampleMindmap(time.Now())}
		err := cmd.Validate(Limits{MaxTextLength: 5})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be at most 5 characters")
	})
}
