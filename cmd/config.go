package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/riskscope/pkg/adk"
	"github.com/user/riskscope/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (providers, models, keys, scoring context)",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Manually set API key for a provider",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")

		if provider == "" || key == "" {
			fmt.Println("Error: --provider and --key are required")
			return
		}

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		cfg.SetAPIKey(strings.ToLower(provider), key)
		if err := config.Save(cfg, cfgFile); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("API key saved for provider: %s\n", provider)
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Manually set the active provider and model",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		if provider != "" {
			cfg.SelectedProvider = strings.ToLower(provider)
		}
		if model != "" {
			cfg.SelectedModel = model
		}

		if err := config.Save(cfg, cfgFile); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("Active configuration updated: Provider=%s, Model=%s\n", cfg.SelectedProvider, cfg.SelectedModel)
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List available models from the configured provider",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println("Error loading config:", err)
			return
		}

		provider := cfg.SelectedProvider
		if provider == "" {
			fmt.Println("No provider selected. Please run 'riskscope config setup'.")
			return
		}
		apiKey := cfg.GetAPIKey(provider)
		if apiKey == "" && provider != "ollama" {
			fmt.Printf("No API key found for %s.\n", provider)
			return
		}

		fmt.Printf("Fetching models for %s...\n", provider)
		ctx := cmd.Context()
		var opts []adk.Option
		if base := cfg.BaseURL(provider); base != "" {
			opts = append(opts, adk.WithBaseURL(base))
		}
		p, err := adk.NewProvider(ctx, provider, apiKey, "", opts...)
		if err != nil {
			fmt.Println("Error initializing provider:", err)
			return
		}
		if closer, ok := p.(interface{ Close() }); ok {
			defer closer.Close()
		}

		models, err := p.ListModels(ctx)
		if err != nil {
			fmt.Println("Error fetching models:", err)
			return
		}

		fmt.Printf("\nAvailable Models (%s):\n", provider)
		for _, m := range models {
			mark := " "
			if m == cfg.SelectedModel {
				mark = "*"
			}
			fmt.Printf("%s %s\n", mark, m)
		}
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with keys masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		masked := *cfg
		masked.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
		for name, p := range cfg.Providers {
			p.APIKey = maskKey(p.APIKey)
			masked.Providers[name] = p
		}

		out, err := yaml.Marshal(&masked)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))

		if profiles, err := config.LoadProfiles(cfg.ProfilesDir); err == nil && len(profiles) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "# profiles in %s: %s\n", cfg.ProfilesDir, strings.Join(profiles.Names(), ", "))
		}
		return nil
	},
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func init() {
	setKeyCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	setKeyCmd.Flags().StringP("key", "k", "", "API Key")

	setModelCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic, ollama)")
	setModelCmd.Flags().StringP("model", "m", "", "Model name")

	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(listModelsCmd)
	configCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(configCmd)
}
