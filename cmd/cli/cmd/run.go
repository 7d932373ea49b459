package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/skyfold/swarmstage/pkg/logger"
	"github.com/skyfold/swarmstage/pkg/simulation"
	"github.com/skyfold/swarmstage/pkg/utils"

	// Import scenes to register them
	_ "github.com/skyfold/swarmstage/cmd/sentinel-scene/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scene",
	Long:  `Run a scene interactively or with specified parameters`,
	RunE:  runScene,
}

func init() {
	runCmd.Flags().StringP("scene", "s", "", "scene name to run")
}

func runScene(cmd *cobra.Command, _ []string) error {
	simName, err := selectScene(cmd)
	if err != nil {
		return fmt.Errorf("failed to select scene: %w", err)
	}

	sim, err := simulation.DefaultRegistry.Get(simName)
	if err != nil {
		return fmt.Errorf("failed to get scene: %w", err)
	}

	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return fmt.Errorf("failed to discover scenes: %w", err)
	}

	var simConfig *simulation.SimulationConfig
	for _, info := range simInfos {
		if info.Config.Name == simName {
			simConfig = &info.Config
			break
		}
	}

	if simConfig == nil {
		return fmt.Errorf("scene configuration not found for %s", simName)
	}

	params, err := utils.PromptForParameters(simConfig.Parameters)
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}

	if err := sim.Configure(params); err != nil {
		return fmt.Errorf("failed to configure scene: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Warn("\nReceived interrupt signal, stopping scene...")
		err := sim.Stop()
		if err != nil {
			logger.Errorf("Failed to stop scene: %v", err)
			return
		}
		cancel()
	}()

	logger.LogSection(fmt.Sprintf("Starting %s", sim.Name()))
	if err := sim.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("scene failed: %w", err)
	}

	logger.Success("Scene completed")
	return nil
}

func selectScene(cmd *cobra.Command) (string, error) {
	// Check if scene is specified via flag
	simName, _ := cmd.Flags().GetString("scene")
	if simName != "" {
		return simName, nil
	}

	// Discover available scenes
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return "", err
	}

	if len(simInfos) == 0 {
		return "", fmt.Errorf("no scenes found")
	}

	if len(simInfos) == 1 {
		return simInfos[0].Config.Name, nil
	}

	// Build options for selection
	options := make([]string, len(simInfos))
	descriptions := make(map[string]string)

	for i, info := range simInfos {
		options[i] = info.Config.Name
		descriptions[info.Config.Name] = info.Config.Description
	}

	// Interactive selection
	var selected string
	prompt := &survey.Select{
		Message: "Select scene:",
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	return selected, nil
}
