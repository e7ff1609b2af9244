// Package wire is the network feed's message format: a binary WebSocket
// message is a bare run of little-endian IEEE-754 float32 values with no
// count or header. Anything else is malformed.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/gorilla/websocket"

	"plotstream/internal/block"
)

// FallbackLen is the size of the all-zero block substituted for a malformed
// message.
const FallbackLen = 3

// Fallback returns a fresh all-zero block of FallbackLen samples.
func Fallback() block.Block {
	return make(block.Block, FallbackLen)
}

// Decode turns one received message into a block. Trailing bytes that do not
// form a whole float are ignored. Non-binary messages yield Fallback and
// ok == false.
func Decode(messageType int, data []byte) (b block.Block, ok bool) {
	if messageType != websocket.BinaryMessage {
		return Fallback(), false
	}
	n := len(data) / 4
	b = make(block.Block, n)
	for i := range n {
		b[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return b, true
}

// Encode appends the wire form of b to dst and returns the extended slice.
func Encode(dst []byte, b block.Block) []byte {
	for _, v := range b {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
