package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/riskscope/pkg/config"
	"github.com/user/riskscope/pkg/engine"
)

// addContextFlags registers the scoring-context overrides shared by score and run.
func addContextFlags(cmd *cobra.Command) {
	cmd.Flags().String("profile", "", "Named context profile from the profiles directory")
	cmd.Flags().String("org-type", "", "Organization type (finance, healthcare, education, ...)")
	cmd.Flags().String("data-criticality", "", "Data criticality: high, medium or none")
	cmd.Flags().Bool("internet-exposed", false, "Assets are reachable from the internet")
	cmd.Flags().Int("days-since-patch", 0, "Days since the last patch cycle")
}

// resolveContext layers config defaults, then --profile, then explicit flags.
func resolveContext(cmd *cobra.Command, cfg *config.Config) (engine.Context, error) {
	c := cfg.Context

	if name, _ := cmd.Flags().GetString("profile"); name != "" {
		profiles, err := config.LoadProfiles(cfg.ProfilesDir)
		if err != nil {
			return c, fmt.Errorf("load profiles: %w", err)
		}
		p, ok := profiles.Get(name)
		if !ok {
			return c, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(profiles.Names(), ", "))
		}
		c = p.Context
	}

	flags := cmd.Flags()
	if flags.Changed("org-type") {
		c.OrgType, _ = flags.GetString("org-type")
	}
	if flags.Changed("data-criticality") {
		v, _ := flags.GetString("data-criticality")
		c.DataCriticality = engine.Criticality(strings.ToLower(v))
	}
	if flags.Changed("internet-exposed") {
		c.InternetExposed, _ = flags.GetBool("internet-exposed")
	}
	if flags.Changed("days-since-patch") {
		c.DaysSincePatch, _ = flags.GetInt("days-since-patch")
	}

	switch engine.Criticality(strings.ToLower(string(c.DataCriticality))) {
	case engine.CriticalityHigh, engine.CriticalityMedium, engine.CriticalityNone, "":
	default:
		slog.Warn("unrecognized data criticality contributes no modifier", "value", c.DataCriticality)
	}
	return c, nil
}
