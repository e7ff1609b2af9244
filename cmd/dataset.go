package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"plotstream/internal/block"
	"plotstream/internal/source"
	"plotstream/pkg/bitint"
)

func newDatasetCmd(g *globalOptions) *cobra.Command {
	var file string
	var blockSize int
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Summarise the replay dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Replay.File
			}
			size := cfg.Pipeline.BlockSize
			if blockSize > 0 {
				size = bitint.NextPowerOfTwo(blockSize)
			}
			data, err := source.LoadDataset(file, size)
			if err != nil {
				return err
			}
			return summarise(cmd.OutOrStdout(), data, size)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "",
		"WAV file to summarise instead of the built-in dataset")
	cmd.Flags().IntVar(&blockSize, "block-size", 0,
		"Block size, rounded up to a power of 2 (default from pipeline.block_size)")
	return cmd
}

func summarise(out io.Writer, data []float32, size int) error {
	all := block.Block(data)
	lo, hi := all.MinMax()
	if _, err := fmt.Fprintf(out, "blocks %d of %d samples\nmin %g max %g\n", len(data)/size, size, lo, hi); err != nil {
		return err
	}
	for i := 0; i+size <= len(data); i += size {
		b := block.Block(data[i : i+size])
		if _, err := fmt.Fprintf(out, "%4d peak %4d value %g\n", i/size, b.Peak(), b[b.Peak()]); err != nil {
			return err
		}
	}
	return nil
}
