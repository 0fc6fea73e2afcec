package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fastslice/internal/ffmpeg"
	"fastslice/internal/pipeline"
)

func newHWAccelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hwaccel",
		Short: "Detect the encoder precise mode would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tools, err := ctx.tools()
			if err != nil {
				return err
			}
			prober := ffmpeg.NewProber(tools.FFmpeg, ctx.processRunner(), pipeline.EncodeSettings(cfg), ctx.log())
			selected := prober.Probe(cmd.Context())

			if ctx.jsonFlag {
				return writeJSON(cmd, map[string]any{
					"name":          selected.Name,
					"kind":          string(selected.Kind),
					"hardware":      selected.IsHardware(),
					"video_codec":   selected.VideoCodec,
					"hwaccel_args":  selected.HWAccelArgs,
					"video_options": selected.VideoOptions,
					"enabled":       cfg.Slice.UseHWAccel,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Encoder:  %s\n", selected.Name)
			fmt.Fprintf(out, "Codec:    %s %s\n", selected.VideoCodec, strings.Join(selected.VideoOptions, " "))
			if len(selected.HWAccelArgs) > 0 {
				fmt.Fprintf(out, "Decoder:  %s\n", strings.Join(selected.HWAccelArgs, " "))
			}
			fmt.Fprintf(out, "Hardware: %s\n", yesNo(selected.IsHardware()))
			if !cfg.Slice.UseHWAccel {
				fmt.Fprintln(out, "Note: slice.use_hwaccel is off; precise ranges will use the software encoder.")
			}
			return nil
		},
	}
}
