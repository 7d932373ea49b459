package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sceneconfig "github.com/skyfold/swarmstage/cmd/sentinel-scene/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage scene configuration",
	Long:  `Inspect and create scene configuration files`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective scene configuration",
	RunE:  showConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a scene.yaml interactively",
	RunE:  initConfigFile,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configShowCmd.Flags().StringP("file", "f", "", "config file to load before overrides")
	configInitCmd.Flags().StringP("output", "o", "scene.yaml", "path for the generated file")
}

// showConfig prints the configuration after file loading and SCENE_*
// environment overrides, i.e. what a run would actually use.
func showConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	cfg, err := sceneconfig.LoadConfigOrDefault(path)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(w, "-------\t-----")
	_, _ = fmt.Fprintf(w, "scene name\t%s\n", cfg.Scene.Name)
	_, _ = fmt.Fprintf(w, "update interval\t%s\n", cfg.Scene.UpdateInterval)
	_, _ = fmt.Fprintf(w, "demo mode\t%v\n", cfg.Scene.Demo)
	_, _ = fmt.Fprintf(w, "agents\t%d\n", cfg.Swarm.NumAgents)
	_, _ = fmt.Fprintf(w, "seed\t%d\n", cfg.Swarm.Seed)
	_, _ = fmt.Fprintf(w, "audio capture\t%v\n", cfg.Audio.Enabled)
	_, _ = fmt.Fprintf(w, "report backend\t%s\n", cfg.Report.Backend)
	_, _ = fmt.Fprintf(w, "terminal UI\t%v\n", cfg.Display.TUI)
	_, _ = fmt.Fprintf(w, "log level\t%s\n", cfg.Logging.ConsoleLevel)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

// initConfigFile walks through the main settings and writes a scene.yaml.
func initConfigFile(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	cfg := sceneconfig.GetDefaultConfig()

	var agents string
	agentsPrompt := &survey.Input{
		Message: "Number of swarm agents:",
		Default: strconv.Itoa(cfg.Swarm.NumAgents),
	}
	if err := survey.AskOne(agentsPrompt, &agents); err != nil {
		return err
	}
	if n, err := strconv.Atoi(agents); err == nil && n > 0 {
		cfg.Swarm.NumAgents = n
	}

	var interval string
	intervalPrompt := &survey.Input{
		Message: "Frame interval (e.g. 50ms):",
		Default: cfg.Scene.UpdateInterval.String(),
	}
	if err := survey.AskOne(intervalPrompt, &interval); err != nil {
		return err
	}
	if d, err := time.ParseDuration(interval); err == nil && d > 0 {
		cfg.Scene.UpdateInterval = d
	}

	backendPrompt := &survey.Select{
		Message: "Report backend:",
		Options: []string{"canned", "gemini"},
		Default: cfg.Report.Backend,
	}
	if err := survey.AskOne(backendPrompt, &cfg.Report.Backend); err != nil {
		return err
	}

	audioPrompt := &survey.Confirm{
		Message: "Capture microphone input?",
		Default: cfg.Audio.Enabled,
	}
	if err := survey.AskOne(audioPrompt, &cfg.Audio.Enabled); err != nil {
		return err
	}

	tuiPrompt := &survey.Confirm{
		Message: "Use the full-screen terminal UI?",
		Default: cfg.Display.TUI,
	}
	if err := survey.AskOne(tuiPrompt, &cfg.Display.TUI); err != nil {
		return err
	}

	if err := sceneconfig.SaveConfig(cfg, output); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", output)
	return nil
}
