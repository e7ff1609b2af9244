// SPDX-License-Identifier: MIT
package wire

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"plotstream/internal/block"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		typ    int
		data   []byte
		want   block.Block
		wantOK bool
	}{
		{
			name: "four floats",
			typ:  websocket.BinaryMessage,
			data: []byte{
				0x00, 0x00, 0x80, 0x3F,
				0x00, 0x00, 0x00, 0x40,
				0x00, 0x00, 0x40, 0x40,
				0x00, 0x00, 0x80, 0x40,
			},
			want:   block.Block{1, 2, 3, 4},
			wantOK: true,
		},
		{
			name:   "trailing bytes ignored",
			typ:    websocket.BinaryMessage,
			data:   []byte{0x00, 0x00, 0x80, 0x3F, 0xAA, 0xBB},
			want:   block.Block{1},
			wantOK: true,
		},
		{
			name:   "empty binary",
			typ:    websocket.BinaryMessage,
			data:   nil,
			want:   block.Block{},
			wantOK: true,
		},
		{
			name:   "text",
			typ:    websocket.TextMessage,
			data:   []byte("hello"),
			want:   block.Block{0, 0, 0},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.typ, tt.data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	in := block.Block{0.5, -2, 1e6}
	raw := Encode(nil, in)
	assert.Len(t, raw, 12)

	out, ok := Decode(websocket.BinaryMessage, raw)
	assert.True(t, ok)
	assert.Equal(t, in, out)
}
