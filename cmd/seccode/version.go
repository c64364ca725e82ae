package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
)

// buildInfo is the machine-readable version output.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display version, build, and runtime information for seccode.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printVersion(cmd.OutOrStdout())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only version number")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer) error {
	info := buildInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	switch {
	case versionJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case versionShort:
		_, err := fmt.Fprintln(w, info.Version)
		return err
	}

	_, _ = fmt.Fprintf(w, "seccode version %s\n", info.Version)
	_, _ = fmt.Fprintf(w, "  Commit:      %s\n", info.Commit)
	_, _ = fmt.Fprintf(w, "  Build date:  %s\n", info.Date)
	_, _ = fmt.Fprintf(w, "  Go version:  %s\n", info.GoVersion)
	_, _ = fmt.Fprintf(w, "  Platform:    %s\n", info.Platform)
	return nil
}
