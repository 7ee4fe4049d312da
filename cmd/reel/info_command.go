package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/reel/scene"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <scene.json>",
		Short: "Summarize a scene description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadScene(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			frames := len(desc.Frames)
			fmt.Fprintf(out, "frames:   %d\n", frames)
			fmt.Fprintf(out, "fps:      %d\n", desc.FPS)
			if desc.FPS > 0 {
				fmt.Fprintf(out, "duration: %.2fs\n", float64(frames)/float64(desc.FPS))
			}
			fmt.Fprintf(out, "sounds:   %d\n", len(desc.Sounds))

			primitives := 0
			for i := range desc.Frames {
				primitives += len(scene.Flatten(&desc.Frames[i]))
			}
			fmt.Fprintf(out, "visible primitives: %d\n", primitives)
			return nil
		},
	}
}
