package main

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/cobra"

	"github.com/gogpu/reel/internal/gpu"
	"github.com/gogpu/reel/render"
	"github.com/gogpu/reel/scene"
	"github.com/gogpu/reel/video"
)

func newExportCommand(configFlag *string) *cobra.Command {
	var (
		output      string
		width       int
		height      int
		fps         int
		crf         int
		preset      string
		binary      string
		texturesDir string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "export <scene.json>",
		Short: "Render a scene description to an H.264 file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(*configFlag)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("width") {
				cfg.Output.Width = width
			}
			if flags.Changed("height") {
				cfg.Output.Height = height
			}
			if flags.Changed("fps") {
				cfg.Output.FPS = fps
			}
			if flags.Changed("crf") {
				cfg.Encoder.CRF = crf
			}
			if flags.Changed("preset") {
				cfg.Encoder.Preset = preset
			}
			if flags.Changed("ffmpeg") {
				cfg.Encoder.Binary = binary
			}
			if verbose {
				cfg.Logging.Level = "debug"
				cfg.Encoder.Verbose = true
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			setupLogging(&cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			desc, err := loadScene(args[0])
			if err != nil {
				return err
			}
			if cfg.Output.FPS > 0 {
				desc.FPS = cfg.Output.FPS
			}

			reg := scene.NewRegistry()
			if texturesDir != "" {
				if err := loadTextures(reg, texturesDir); err != nil {
					return err
				}
			}

			res := render.Resolution{Width: cfg.Output.Width, Height: cfg.Output.Height}
			session, err := gpu.NewSession(res, reg)
			if err != nil {
				return fmt.Errorf("open gpu session: %w", err)
			}
			defer session.Close()

			encOpts := []video.Option{
				video.WithBinary(cfg.Encoder.Binary),
				video.WithPreset(cfg.Encoder.Preset),
				video.WithCRF(cfg.Encoder.CRF),
			}
			if cfg.Encoder.Verbose {
				encOpts = append(encOpts, video.WithVerboseLog())
			}
			enc := video.NewFFmpegEncoder(ctx, output, encOpts...)

			total := len(desc.Frames)
			err = video.Export(ctx, desc, session, enc, func(i int) {
				fmt.Fprintf(cmd.OutOrStdout(), "\rframe %d/%d", i+1, total)
			})
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "out.mp4", "output video path")
	cmd.Flags().IntVar(&width, "width", defaultWidth, "output width in pixels")
	cmd.Flags().IntVar(&height, "height", defaultHeight, "output height in pixels")
	cmd.Flags().IntVar(&fps, "fps", 0, "override the clip frame rate")
	cmd.Flags().IntVar(&crf, "crf", defaultCRF, "libx264 constant rate factor")
	cmd.Flags().StringVar(&preset, "preset", defaultPreset, "libx264 preset")
	cmd.Flags().StringVar(&binary, "ffmpeg", defaultBinary, "ffmpeg binary path")
	cmd.Flags().StringVar(&texturesDir, "textures", "", "directory of images named <id>.<ext>")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, forward encoder diagnostics")

	return cmd
}

// loadScene decodes a VideoDescription from a JSON file.
func loadScene(path string) (*scene.VideoDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	var desc scene.VideoDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return &desc, nil
}

// loadTextures fills the registry from a directory of image files whose
// base name is the numeric texture id, e.g. 7.png registers id 7.
func loadTextures(reg *scene.Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read textures dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		base := strings.TrimSuffix(name, filepath.Ext(name))
		id, err := strconv.ParseUint(base, 10, 32)
		if err != nil {
			continue
		}
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("open texture %s: %w", name, err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("decode texture %s: %w", name, err)
		}
		reg.Set(uint32(id), img)
	}
	return nil
}
