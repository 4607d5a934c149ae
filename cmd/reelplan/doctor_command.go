package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelplan/internal/config"
	"reelplan/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that compiled plans can run on this host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			w := newStatusWriter(cmd.OutOrStdout())

			w.section("Dependencies")
			missingRequired := 0
			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				kind, msg := binaryStatus(status)
				if kind == statusError {
					missingRequired++
				}
				w.line(status.Name, kind, msg)
			}

			w.section("Storage")
			w.info("Database", cfg.DatabasePath())
			w.info("Render dir", cfg.Paths.RenderDir)
			if _, err := ctx.openStore(); err != nil {
				w.line("Store", statusError, err.Error())
				missingRequired++
			} else {
				w.line("Store", statusOK, "opened")
			}

			w.section("Encoders")
			hardware := deps.NewEncoderProbe(cfg.FFmpegBinary(), nil, logger).HardwareEncoders(cmd.Context())
			for _, name := range cfg.ProfileNames() {
				profile, _ := cfg.Profile(name)
				w.info(name, selectedEncoder(profile, hardware))
			}

			if missingRequired > 0 {
				return fmt.Errorf("%d required check(s) failed", missingRequired)
			}
			return nil
		},
	}
}

// selectedEncoder mirrors the compiler's choice: the first listed hardware
// encoder the host provides, else the profile's software codec.
func selectedEncoder(profile config.Profile, hardware map[string]struct{}) string {
	for _, name := range profile.HardwareEncoders {
		if _, ok := hardware[name]; ok {
			return name + " (hardware)"
		}
	}
	return profile.Codec + " (software)"
}

func profilesUsing(cfg *config.Config, encoder string) string {
	var matched []string
	for _, name := range cfg.ProfileNames() {
		profile, _ := cfg.Profile(name)
		for _, candidate := range profile.HardwareEncoders {
			if candidate == encoder {
				matched = append(matched, name)
				break
			}
		}
	}
	if len(matched) == 0 {
		return "-"
	}
	return strings.Join(matched, ", ")
}
