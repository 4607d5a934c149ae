package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelplan/internal/deps"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Inspect the host's ffmpeg build",
	}
	probeCmd.AddCommand(newProbeEncodersCommand(ctx))
	return probeCmd
}

func newProbeEncodersCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "encoders",
		Short: "List hardware video encoders compiled into ffmpeg",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			names := deps.NewEncoderProbe(cfg.FFmpegBinary(), nil, logger).Names(cmd.Context())
			if jsonOutput {
				return writeJSON(cmd, names)
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No hardware encoders detected; plans will use software codecs")
				return nil
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, profilesUsing(cfg, name)})
			}
			fmt.Fprintln(out, renderTable([]string{"Encoder", "Profiles"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output encoder names as JSON")
	return cmd
}
