package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	profile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "seccode",
	Short: "seccode - CERT secure coding checks for Java",
	Long: `seccode evaluates Java syntax trees against rules of the CERT Oracle
Secure Coding Standard for Java and applies the fixes the rules propose.

Trees are read from tree documents (*.jast.json, *.jast.yaml or
*.jast.msgpack) written by a Java parser. Custom rules can be added as Rego
policies or Go plugins.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .seccode.yaml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "profile to use from config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text|json)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
