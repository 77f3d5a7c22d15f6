// Command tenantguard-cli is the operator CLI for the tenantguard service.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tenantguardhq/tenantguard/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.1.0"
	commit    = ""
	buildDate = ""
)

var (
	apiClient  *client.Client
	flagURL    string
	flagTenant string
	flagActor  string
	flagFmt    string
)

const defaultURL = "http://localhost:3040"

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("tenantguard version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("tenantguard version %s-dev", version)
}

type configFile struct {
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL      string `yaml:"url"`
	TenantID string `yaml:"tenant_id"`
	ActorID  string `yaml:"actor_id"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "tenantguard",
		Short:   "Tenantguard CLI — tenant isolation, audit and provisioning",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			opts := []client.Option{client.WithTenant(flagTenant)}
			if flagActor != "" {
				opts = append(opts, client.WithActor(flagActor))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "Tenantguard server URL (env: TENANTGUARD_URL)")
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "Tenant ID requests act on behalf of (env: TENANTGUARD_TENANT)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "Acting user ID (env: TENANTGUARD_ACTOR)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	rootCmd.AddCommand(newProvisionCmd())
	rootCmd.AddCommand(newJobsCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfig() {
	// Flag takes precedence, then env, then config file.
	if flagURL == defaultURL {
		if v := os.Getenv("TENANTGUARD_URL"); v != "" {
			flagURL = v
		}
	}
	if flagTenant == "" {
		flagTenant = os.Getenv("TENANTGUARD_TENANT")
	}
	if flagActor == "" {
		flagActor = os.Getenv("TENANTGUARD_ACTOR")
	}

	// Try config file for any remaining defaults.
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	cfgPath := filepath.Join(home, ".tenantguard", "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}

	profileName := cfg.ActiveProfile
	if profileName == "" {
		profileName = "default"
	}
	p, ok := cfg.Profiles[profileName]
	if !ok {
		return
	}
	if flagURL == defaultURL && p.URL != "" {
		flagURL = p.URL
	}
	if flagTenant == "" && p.TenantID != "" {
		flagTenant = p.TenantID
	}
	if flagActor == "" && p.ActorID != "" {
		flagActor = p.ActorID
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
