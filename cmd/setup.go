package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/riskscope/pkg/adk"
	"github.com/user/riskscope/pkg/config"
	"github.com/user/riskscope/pkg/engine"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Run: func(cmd *cobra.Command, args []string) {
		scanner := bufio.NewScanner(os.Stdin)
		ask := func(prompt string) string {
			fmt.Print(prompt)
			scanner.Scan()
			return strings.TrimSpace(scanner.Text())
		}

		fmt.Println("Welcome to riskscope Setup Wizard")
		fmt.Println("---------------------------------")

		// 1. Select Provider
		fmt.Println("Step 1: Choose your AI Provider for explanations")
		fmt.Println("1. Gemini (Google)")
		fmt.Println("2. OpenAI")
		fmt.Println("3. Anthropic")
		fmt.Println("4. Ollama (local, no key)")
		choice := strings.ToLower(ask("Enter number or name > "))

		var provider string
		switch choice {
		case "1", "gemini":
			provider = "gemini"
		case "2", "openai":
			provider = "openai"
		case "3", "anthropic":
			provider = "anthropic"
		case "4", "ollama":
			provider = "ollama"
		default:
			fmt.Println("Invalid choice. Aborting.")
			return
		}

		// 2. Enter API Key
		var apiKey string
		if provider != "ollama" {
			fmt.Printf("\nStep 2: Enter API Key for %s\n", provider)
			apiKey = ask("> ")
			if apiKey == "" {
				fmt.Println("API Key cannot be empty.")
				return
			}
		}

		// 3. Fetch Models
		fmt.Println("\nStep 3: Validating key and fetching available models...")
		ctx := cmd.Context()

		tempProvider, err := adk.NewProvider(ctx, provider, apiKey, "")
		if err != nil {
			fmt.Printf("Error initializing provider: %v\n", err)
			return
		}
		if closer, ok := tempProvider.(interface{ Close() }); ok {
			defer closer.Close()
		}

		models, err := tempProvider.ListModels(ctx)
		var selectedModel string

		if err != nil || len(models) == 0 {
			if err != nil {
				fmt.Printf("Warning: Could not fetch models from API: %v\n", err)
			}
			selectedModel = ask("Please enter model name manually (e.g., 'gemini-1.5-flash', 'llama3.1:8b'):\n> ")
		} else {
			fmt.Printf("Successfully retrieved %d models.\n", len(models))
			for i, m := range models {
				fmt.Printf("%d. %s\n", i+1, m)
			}
			selIdx, err := strconv.Atoi(ask("Select Model (number) > "))
			if err != nil || selIdx < 1 || selIdx > len(models) {
				fmt.Println("Invalid selection. Using first available model.")
				selectedModel = models[0]
			} else {
				selectedModel = models[selIdx-1]
			}
		}

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		// 4. Default scoring context
		fmt.Println("\nStep 4: Default scoring context (press Enter to keep current value)")
		if v := ask(fmt.Sprintf("Organization type [%s] > ", cfg.Context.OrgType)); v != "" {
			cfg.Context.OrgType = v
		}
		if v := ask(fmt.Sprintf("Data criticality (high/medium/none) [%s] > ", cfg.Context.DataCriticality)); v != "" {
			cfg.Context.DataCriticality = engine.Criticality(strings.ToLower(v))
		}
		if v := ask(fmt.Sprintf("Internet exposed (y/n) [%t] > ", cfg.Context.InternetExposed)); v != "" {
			cfg.Context.InternetExposed = strings.HasPrefix(strings.ToLower(v), "y")
		}
		if v := ask(fmt.Sprintf("Days since last patch [%d] > ", cfg.Context.DaysSincePatch)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				cfg.Context.DaysSincePatch = n
			} else {
				fmt.Println("Not a number, keeping current value.")
			}
		}

		// 5. Save Configuration
		fmt.Println("\nStep 5: Saving Configuration...")
		cfg.SelectedProvider = provider
		cfg.SelectedModel = selectedModel
		if apiKey != "" {
			cfg.SetAPIKey(provider, apiKey)
		}

		if err := config.Save(cfg, cfgFile); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}

		fmt.Println("---------------------------------")
		fmt.Println("Setup Complete!")
		fmt.Printf("Provider: %s\n", provider)
		fmt.Printf("Model:    %s\n", selectedModel)
		fmt.Println("You can now run 'riskscope run --explain <scan.zip>'")
	},
}

func init() {
	configCmd.AddCommand(setupCmd)
}
