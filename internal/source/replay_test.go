// SPDX-License-Identifier: MIT
package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotstream/internal/block"
)

func TestReplay_Cycles(t *testing.T) {
	const size = 4
	data := make([]float32, 3*size+2) // trailing partial chunk is ignored
	for i := range data {
		data[i] = float32(i)
	}
	r, err := NewReplay(data, size, 0)
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	blocks := runUntil(t, r, r.Len()+2, 5*time.Second)
	require.Len(t, blocks, 5)

	assert.Equal(t, block.Block{0, 1, 2, 3}, blocks[0])
	assert.Equal(t, block.Block{8, 9, 10, 11}, blocks[2])
	assert.Equal(t, blocks[0], blocks[3], "chunk K+1 repeats chunk 1")
	assert.Equal(t, blocks[1], blocks[4])
}

func TestReplay_BuiltinDeterministic(t *testing.T) {
	data, err := BuiltinDataset(512)
	require.NoError(t, err)
	require.Len(t, data, 512*builtinBlocks)

	again, err := BuiltinDataset(512)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	r, err := NewReplay(data, 512, time.Millisecond)
	require.NoError(t, err)
	blocks := runUntil(t, r, r.Len()+1, 10*time.Second)
	require.Len(t, blocks, builtinBlocks+1)
	assert.Equal(t, blocks[0], blocks[builtinBlocks])
}

func TestReplay_TooShort(t *testing.T) {
	_, err := NewReplay(make([]float32, 3), 4, 0)
	assert.ErrorContains(t, err, "shorter than one chunk of 4")
	_, err = NewReplay(make([]float32, 8), 0, 0)
	assert.Error(t, err)
}

func writeTestWAV(t *testing.T, channels int, frames []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 8000, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: 8000},
		Data:           frames,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestLoadWAV(t *testing.T) {
	// Stereo: left carries the ramp, right is noise that must be skipped.
	var frames []int
	for i := range 10 {
		frames = append(frames, i*1024, -999)
	}
	path := writeTestWAV(t, 2, frames)

	data, err := LoadDataset(path, 4)
	require.NoError(t, err)
	require.Len(t, data, 8)
	for i, v := range data {
		assert.InDelta(t, float32(i*1024)/32768, v, 1e-6)
	}

	_, err = LoadWAV(path, 16)
	assert.Error(t, err, "shorter than one block")

	_, err = LoadWAV(filepath.Join(t.TempDir(), "missing.wav"), 4)
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("not a wav"), 0644))
	_, err = LoadWAV(bogus, 4)
	assert.Error(t, err)
}
