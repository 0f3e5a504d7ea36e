package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"playlist-digest/internal/llm"
	"playlist-digest/internal/source"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		from   string
		output string
		videos int
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Copy a transcript archive, optionally keeping only the first N videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if from == "" {
				from = cfg.TranscriptsFile
			}
			if from == "" {
				return llm.ConfigurationError("extract", "a transcript archive is required (--transcripts or TRANSCRIPTS_FILE)")
			}
			if !cmd.Flags().Changed("videos") {
				videos = cfg.Videos
			}

			deps, err := ctx.ensureDeps()
			if err != nil {
				return err
			}
			src, err := source.OpenFile(from)
			if err != nil {
				return err
			}
			archive, err := source.Extract(cmd.Context(), source.FirstN(src, videos), deps.Log)
			if err != nil {
				return err
			}
			if err := source.WriteArchive(output, archive); err != nil {
				return err
			}

			missing := 0
			for _, it := range archive.Items {
				if it.Transcript == nil {
					missing++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d videos (%d without transcript) to %s\n",
				len(archive.Items), missing, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&from, "transcripts", "t", "", "Transcript archive to read (env TRANSCRIPTS_FILE)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive to write")
	cmd.Flags().IntVarP(&videos, "videos", "n", 0, "Keep only the first N videos")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
