// Package cli provides the cobra command tree for bidscribe.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by the commands. Settings is wired eagerly; the rest are
// populated by the bootstrap hook for the commands that need them.
var (
	settingsService  driving.SettingsService
	libraryService   driving.LibraryService
	retrievalService driving.RetrievalService
	outlineService   driving.OutlineService
	importService    driving.ImportService
	analysisService  driving.AnalysisService
)

// Need names the service set a command requires before it runs.
type Need string

const (
	// NeedKnowledge requires the library, retrieval and import services.
	NeedKnowledge Need = "knowledge"

	// NeedGeneration requires the outline and analysis services. Knowledge
	// services are attached when the store is enabled.
	NeedGeneration Need = "generation"
)

// needAnnotation is the cobra annotation key carrying a command's Need.
const needAnnotation = "bidscribe.need"

// Services is the set of driving ports a bootstrap produces.
type Services struct {
	Settings  driving.SettingsService
	Library   driving.LibraryService
	Retrieval driving.RetrievalService
	Outline   driving.OutlineService
	Import    driving.ImportService
	Analysis  driving.AnalysisService
}

// BootstrapFunc builds the services a command needs.
type BootstrapFunc func(ctx context.Context, need Need) (*Services, error)

var bootstrap BootstrapFunc

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bidscribe",
	Short: "Generate bid document outlines from scoring requirements",
	Long: `bidscribe turns a project overview and a list of scoring requirements
into a three-level bid outline, optionally grounded in a local knowledge
base of past bid sections and filled with generated prose.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
}

// SetServices installs services directly, replacing any previous ones.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	if s.Settings != nil {
		settingsService = s.Settings
	}
	if s.Library != nil {
		libraryService = s.Library
	}
	if s.Retrieval != nil {
		retrievalService = s.Retrieval
	}
	if s.Outline != nil {
		outlineService = s.Outline
	}
	if s.Import != nil {
		importService = s.Import
	}
	if s.Analysis != nil {
		analysisService = s.Analysis
	}
}

// SetBootstrap installs the hook that builds services on demand.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	need := needOf(cmd)
	if need == "" || bootstrap == nil {
		return nil
	}

	logger.Debug("bootstrapping %s services for %q", need, cmd.CommandPath())
	services, err := bootstrap(commandContext(cmd), need)
	if err != nil {
		return err
	}
	SetServices(services)
	return nil
}

// needOf returns the Need of cmd or its closest annotated parent.
func needOf(cmd *cobra.Command) Need {
	for c := cmd; c != nil; c = c.Parent() {
		if need, ok := c.Annotations[needAnnotation]; ok {
			return Need(need)
		}
	}
	return ""
}

func needs(need Need) map[string]string {
	return map[string]string{needAnnotation: string(need)}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var errNotConfigured = errors.New("service not configured")

func notConfigured(name string) error {
	return fmt.Errorf("%s %w", name, errNotConfigured)
}
