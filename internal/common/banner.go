package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

var stakdArt = []string{
	`  .d8888b. 88888888888     d8888 888    d8P  8888888b.`,
	` d88P  Y88b    888        d88888 888   d8P   888  "Y88b`,
	` Y88b.         888       d88P888 888  d8P    888    888`,
	`  "Y888b.      888      d88P 888 888d88K     888    888`,
	`     "Y88b.    888     d88P  888 8888888b    888    888`,
	`       "888    888    d88P   888 888  Y88b   888    888`,
	` Y88b  d88P    888   d8888888888 888   Y88b  888  .d88P`,
	`  "Y8888P"     888  d88P     888 888    Y88b 8888888P"`,
}

func rule(width int) string {
	return banner.ColorCyan + strings.Repeat("═", width) + banner.ColorReset
}

func bold(s string) string {
	return banner.ColorBold + banner.ColorWhite + s + banner.ColorReset
}

// PrintBanner writes the startup banner to stderr and logs the same
// identity fields so both humans and log collectors see them.
func PrintBanner(config *Config, logger *Logger) {
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	out := os.Stderr
	fmt.Fprintf(out, "\n%s\n\n", rule(70))
	for _, line := range stakdArt {
		fmt.Fprintln(out, bold(line))
	}
	fmt.Fprintf(out, "\n%s\n\n%s\n\n", bold("  Crypto Holdings & Rebalancing"), rule(70))

	for _, kv := range [][2]string{
		{"Version", GetVersion()},
		{"Build", GetBuild()},
		{"Commit", GetGitCommit()},
		{"Environment", config.Environment},
		{"Service URL", serviceURL},
		{"Vault", config.Storage.Vault.Path},
	} {
		fmt.Fprintln(out, bold(fmt.Sprintf("  %-16s %s", kv[0], kv[1])))
	}
	fmt.Fprintf(out, "\n%s\n\n", rule(70))

	logger.Info().
		Str("version", GetVersion()).
		Str("build", GetBuild()).
		Str("commit", GetGitCommit()).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Str("vault_path", config.Storage.Vault.Path).
		Msg("Application started")
}

// PrintShutdownBanner writes the shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	fmt.Fprintf(os.Stderr, "\n%s\n%s\n%s\n\n", rule(42), bold("  STAKD — SHUTTING DOWN"), rule(42))
	logger.Info().Msg("Application shutting down")
}
