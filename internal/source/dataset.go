package source

import (
	"os"

	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"plotstream/internal/analysis"
)

// Built-in dataset parameters: a 480 Hz tone at 48 kHz with real-only
// noise, shifted spectrum, 50 blocks.
const (
	builtinFrequency  = 480
	builtinSampleRate = 48000
	builtinGain       = 2.0
	builtinBlocks     = 50
	builtinSeed       = 0x5eed
)

// LoadDataset returns replay samples: the built-in dataset when path is
// empty, otherwise the first channel of a WAV file. The result always holds
// a whole number of blocks.
func LoadDataset(path string, blockSize int) ([]float32, error) {
	if path == "" {
		return BuiltinDataset(blockSize)
	}
	return LoadWAV(path, blockSize)
}

// BuiltinDataset generates the fixed replay dataset. It is deterministic for
// a given block size.
func BuiltinDataset(blockSize int) ([]float32, error) {
	tone, err := analysis.NewTone(builtinFrequency, builtinSampleRate)
	if err != nil {
		return nil, err
	}
	fft, err := analysis.NewTransform(blockSize, analysis.None, true)
	if err != nil {
		return nil, errors.Wrap(err, "builtin dataset")
	}
	noise := analysis.NewNoise(builtinGain, analysis.Real, builtinSeed)

	out := make([]float32, 0, blockSize*builtinBlocks)
	spec := make([]complex128, blockSize)
	for range builtinBlocks {
		frame := tone.Next(blockSize)
		noise.Apply(frame)
		if spec, err = fft.Forward(spec, frame); err != nil {
			return nil, err
		}
		out = append(out, analysis.Magnitude(spec)...)
	}
	return out, nil
}

// LoadWAV decodes the first channel of a PCM WAV file, scaled to [-1, 1),
// and truncates it to a multiple of blockSize.
func LoadWAV(path string, blockSize int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open dataset")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.Errorf("%s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		return nil, errors.Errorf("%s: unknown bit depth", path)
	}
	scale := 1 / float32(int64(1)<<(depth-1))

	frames := len(buf.Data) / channels
	frames -= frames % blockSize
	if frames == 0 {
		return nil, errors.Errorf("%s: %d frames is shorter than one block of %d", path, len(buf.Data)/channels, blockSize)
	}
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(buf.Data[i*channels]) * scale
	}
	return out, nil
}
