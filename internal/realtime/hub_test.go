package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/nodeid"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

func TestSessionArg(t *testing.T) {
	tests := []struct {
		name   string
		args   []any
		want   string
		wantOK bool
	}{
		{"bare id", []any{"abc"}, "abc", true},
		{"object", []any{map[string]any{"sessionId": "abc"}}, "abc", true},
		{"empty string", []any{""}, "", false},
		{"object without id", []any{map[string]any{"other": 1}}, "", false},
		{"number", []any{42.0}, "", false},
		{"no args", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sessionArg(tt.args)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshotMessage(t *testing.T) {
	n := node.New(nodeid.ProductInput, node.StatusActive, node.Position{}, node.ProductInputPayload{})
	snap := topologystore.Snapshot{Revision: 7, Nodes: []*node.Node{n}}

	msg := snapshotMessage("s1", snap)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, uint64(7), msg.Revision)
	assert.Len(t, msg.Nodes, 1)
	assert.Empty(t, msg.Edges)
}
