package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bottihq/botti/pkg/botti/assistant"
	"github.com/bottihq/botti/pkg/botti/scenario"
)

// newSetupCmd creates the `botti setup` command for interactive configuration.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Starts an interactive wizard that creates your initial config.yaml.
Asks for the assistant name, scenario, admin phone number and API settings.
The API key goes to the OS keyring, never into the config file.

Examples:
  botti setup`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInteractiveSetup()
		},
	}
}

// runInteractiveSetup guides the user through config creation step by step.
func runInteractiveSetup() error {
	reader := bufio.NewReader(os.Stdin)
	cfg := assistant.DefaultConfig()
	keyInKeyring := false

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║             Botti — Setup Wizard             ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()

	// ---------- Step 1: Assistant name ----------
	fmt.Printf("1. Assistant name [%s]: ", cfg.AssistantName)
	if name := readLine(reader); name != "" {
		cfg.AssistantName = name
	}

	// ---------- Step 2: Scenario ----------
	names := scenario.NewRegistry(scenario.NewBackend()).Names()
	fmt.Println()
	fmt.Println("   Available scenarios:")
	for _, n := range names {
		fmt.Printf("   - %s\n", n)
	}
	fmt.Println()
	for {
		fmt.Printf("2. Scenario [%s]: ", cfg.Scenario)
		s := readLine(reader)
		if s == "" {
			break
		}
		if containsString(names, s) {
			cfg.Scenario = s
			break
		}
		fmt.Printf("   [!] Unknown scenario %q.\n", s)
	}

	// ---------- Step 3: Admin phone number ----------
	fmt.Println()
	fmt.Println("   Admins can run ! commands (reset, pause, resume).")
	fmt.Println("   Use your phone number with country code, no +, spaces or dashes.")
	fmt.Println("   Example: 358401234567")
	fmt.Println()
	for {
		fmt.Print("3. Your phone number (admin): ")
		admin := normalizePhone(readLine(reader))
		if admin == "" {
			fmt.Println("   [!] Phone number is required. Botti needs at least one admin.")
			continue
		}
		if len(admin) < 10 {
			fmt.Println("   [!] Number seems too short. Include the country code.")
			continue
		}
		cfg.Admins = []string{admin}
		break
	}

	// ---------- Step 4: API provider ----------
	fmt.Println()
	fmt.Println("   API endpoint (OpenAI-compatible):")
	fmt.Println()
	base := cfg.LLM.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	fmt.Printf("4. API base URL [%s]: ", base)
	if url := readLine(reader); url != "" {
		cfg.LLM.BaseURL = url
	}

	// ---------- Step 5: API key ----------
	fmt.Println()
	fmt.Println("   The API key is stored in your OS keyring, not in config.yaml.")
	fmt.Println("   Press Enter to skip and use the BOTTI_API_KEY env variable instead.")
	fmt.Println()
	fmt.Print("5. API key: ")
	if key := readLine(reader); key != "" {
		if err := assistant.StoreAPIKey(key); err != nil {
			fmt.Printf("   [!] Keyring unavailable (%v).\n", err)
			fmt.Println("   Set BOTTI_API_KEY in your environment or .env file instead.")
		} else {
			fmt.Println("   API key stored in OS keyring.")
			keyInKeyring = true
		}
	}

	// ---------- Step 6: Model ----------
	fmt.Println()
	model := cfg.LLM.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	fmt.Printf("6. Model [%s]: ", model)
	if m := readLine(reader); m != "" {
		cfg.LLM.Model = m
	}

	// ---------- Summary ----------
	fmt.Println()
	fmt.Println("─────────────────────────────────────────────")
	fmt.Println("  Configuration summary:")
	fmt.Println("─────────────────────────────────────────────")
	fmt.Printf("  Name:      %s\n", cfg.AssistantName)
	fmt.Printf("  Scenario:  %s\n", cfg.Scenario)
	fmt.Printf("  Admin:     %s\n", cfg.Admins[0])
	if cfg.LLM.BaseURL != "" {
		fmt.Printf("  API URL:   %s\n", cfg.LLM.BaseURL)
	}
	if keyInKeyring {
		fmt.Println("  API key:   **** (OS keyring)")
	} else {
		fmt.Println("  API key:   (from BOTTI_API_KEY)")
	}
	fmt.Printf("  Database:  %s\n", cfg.Database)
	fmt.Println("─────────────────────────────────────────────")
	fmt.Println()

	// ---------- Confirm and save ----------
	target := "config.yaml"
	fmt.Printf("Save to %s? (y/n) [y]: ", target)
	if confirm := readLine(reader); strings.EqualFold(confirm, "n") {
		fmt.Println("Setup cancelled.")
		return nil
	}

	if _, err := os.Stat(target); err == nil {
		fmt.Printf("File %s already exists. Overwrite? (y/n) [n]: ", target)
		if overwrite := readLine(reader); !strings.EqualFold(overwrite, "y") {
			fmt.Println("Setup cancelled. Existing file kept.")
			return nil
		}
	}

	if err := assistant.SaveConfig(cfg, target); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Println("config.yaml created successfully!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run: botti serve")
	fmt.Println("  2. Scan the QR code with your WhatsApp (Linked Devices)")
	fmt.Println()

	return nil
}

// readLine reads a single line from the reader, trimming whitespace.
func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// normalizePhone removes common phone number formatting characters.
func normalizePhone(phone string) string {
	for _, ch := range []string{"+", " ", "-", "(", ")"} {
		phone = strings.ReplaceAll(phone, ch, "")
	}
	return phone
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
