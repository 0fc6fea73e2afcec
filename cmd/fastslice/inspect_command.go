package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fastslice/internal/media/ffprobe"
	"fastslice/internal/timecode"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <video>",
		Short: "Show container and stream details reported by ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := ctx.tools()
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), ctx.processRunner(), tools.FFprobe, args[0])
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				_, err := cmd.OutOrStdout().Write(result.RawJSON())
				return err
			}

			out := cmd.OutOrStdout()
			summary := result.Summarize()
			fmt.Fprintf(out, "File:     %s\n", args[0])
			fmt.Fprintf(out, "Format:   %s\n", summary.Format)
			fmt.Fprintf(out, "Duration: %s\n", timecode.Tool(summary.DurationSeconds))
			fmt.Fprintf(out, "Size:     %s\n", humanize.IBytes(summary.SizeBytes))
			fmt.Fprintf(out, "Bitrate:  %s/s\n", humanize.SI(float64(summary.BitRate), "bit"))
			fmt.Fprintf(out, "Streams:  %d video, %d audio, %d subtitle\n", summary.VideoStreams, summary.AudioStreams, summary.SubtitleStreams)

			rows := make([][]string, 0, len(result.Streams))
			for _, stream := range result.Streams {
				detail := ""
				switch stream.CodecType {
				case "video":
					detail = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
				case "audio":
					detail = fmt.Sprintf("%s Hz, %d ch", stream.SampleRate, stream.Channels)
				}
				rows = append(rows, []string{strconv.Itoa(stream.Index), stream.CodecType, stream.CodecName, detail})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"#", "Type", "Codec", "Detail"}, rows, []columnAlignment{alignRight}, ""))
			}
			return nil
		},
	}
}
