package main

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	o, err := parse([]string{"-session", "abc", "-scroll", "-timeout", "2s"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "abc", o.sessionID)
	assert.True(t, o.scroll)
	assert.Equal(t, 2*time.Second, o.timeout)
	assert.Equal(t, "http://localhost:8000/socket.io/", o.url)

	_, err = parse(nil, &bytes.Buffer{})
	require.Error(t, err)

	_, err = parse([]string{"-h"}, &bytes.Buffer{})
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestPrintSnapshot(t *testing.T) {
	var snap snapshotEvent
	require.NoError(t, remarshal(map[string]any{
		"revision": 3,
		"nodes": []any{
			map[string]any{"id": "product_input", "kind": "product_input", "status": "completed"},
			map[string]any{"id": "demographics", "kind": "demographics", "status": "active"},
		},
		"edges": []any{map[string]any{"id": "e1"}},
	}, &snap))

	var out bytes.Buffer
	printSnapshot(&out, snap)
	assert.Contains(t, out.String(), "revision 3: 2 nodes, 1 edges")
	assert.Contains(t, out.String(), "demographics")
}
