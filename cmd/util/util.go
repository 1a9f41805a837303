package util

import (
	"strings"
	"time"

	"github.com/ValentinKolb/dAX/lib/access/client"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupCoordinatorFlags adds the common coordinator flags to a command
func SetupCoordinatorFlags(cmd *cobra.Command) {
	key := "members"
	cmd.PersistentFlags().String(key, "localhost:9001", WrapString("The cluster member addresses as a comma-separated list"))

	key = "window"
	cmd.PersistentFlags().Int(key, 32, WrapString("Transmit window advertised per backend (max in-flight requests)"))

	key = "queue-limit"
	cmd.PersistentFlags().Int(key, 1000, WrapString("Per-connection buffering ceiling; entries beyond it fail with queue overflow"))

	key = "resolve-timeout"
	cmd.PersistentFlags().Int(key, 30, WrapString("Timeout in seconds for a single backend resolution attempt"))

	key = "resolve-retry-delay"
	cmd.PersistentFlags().Int(key, 5, WrapString("Delay in seconds before retrying a timed-out resolution"))
}

// InitCoordinatorConfig initializes configuration from environment variables
func InitCoordinatorConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dax")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetCoordinatorConfig reads the client configuration from viper
func GetCoordinatorConfig() client.Config {
	return client.Config{
		QueueLimit:        viper.GetInt("queue-limit"),
		ResolveTimeout:    time.Duration(viper.GetInt("resolve-timeout")) * time.Second,
		ResolveRetryDelay: time.Duration(viper.GetInt("resolve-retry-delay")) * time.Second,
	}
}

// GetMembers reads the cluster member list from viper
func GetMembers() []string {
	return strings.Split(viper.GetString("members"), ",")
}
