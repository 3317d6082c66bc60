package main

import (
	"fmt"

	"github.com/modcollect/modcollect/pkg/config"
	"github.com/modcollect/modcollect/pkg/filesystem"
	"github.com/modcollect/modcollect/pkg/service"
	"github.com/modcollect/modcollect/pkg/types"
	"github.com/spf13/cobra"
)

// newService builds the service with the resolved config for the current
// staging directory.
func newService() (*service.Service, error) {
	cfg, err := config.Load(stagingDir)
	if err != nil {
		return nil, err
	}
	return service.New(filesystem.NewOS(), cfg), nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the installed collection and deployment state",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		result, err := svc.Status(stagingDir, nil)
		if err != nil {
			return err
		}

		fmt.Printf("Collection: %s (revision %d)\n", result.CollectionName, result.InstalledRevision)
		fmt.Printf("Game:       %s\n", result.GameDomain)
		if result.GameDir != "" {
			fmt.Printf("Deployed:   %d files to %s at %s\n",
				result.DeployedFileCount, result.GameDir, result.DeployedAt)
		} else {
			fmt.Println("Deployed:   no")
		}
		fmt.Printf("Mods:       %d\n", len(result.Mods))
		for _, mod := range result.Mods {
			marker := " "
			if mod.Manual {
				marker = "+"
			}
			fmt.Printf("  %s [%d] %s %s\n", marker, mod.ModID, mod.Name, mod.Version)
		}
		return nil
	},
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Regenerate the load order listings from the cached manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		files, err := svc.RegenerateLoadOrder(stagingDir)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("wrote %s\n", f)
		}
		return nil
	},
}

var (
	deployGameDir string
	deployCopy    bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy staged mod files into the game installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		opts := service.DeployOptions{
			GameDir: deployGameDir,
			DryRun:  dryRun,
		}
		if deployCopy {
			opts.Method = types.MethodCopy
		}

		summary, err := svc.Deploy(stagingDir, opts)
		if err != nil {
			return err
		}

		verb := "Deployed"
		if summary.DryRun {
			verb = "Would deploy"
		}
		fmt.Printf("%s %d files to %s (%d skipped)\n",
			verb, summary.DeployedCount, summary.GameDir, summary.SkippedCount)
		for _, c := range summary.Conflicts {
			fmt.Printf("  conflict: %s\n", c)
		}
		for _, e := range summary.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		return nil
	},
}

var undeployCmd = &cobra.Command{
	Use:   "undeploy",
	Short: "Remove all deployed mod files from the game installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		removed, err := svc.Undeploy(stagingDir)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d deployed files\n", removed)
		return nil
	},
}

var addLocalCmd = &cobra.Command{
	Use:   "add-local <name>",
	Short: "Register a manually managed mod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		id, err := svc.AddLocal(stagingDir, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Registered %q as local mod %d\n", args[0], id)
		return nil
	},
}

var genConfigCmd = &cobra.Command{
	Use:   "gen-config",
	Short: "Print a starter configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.GenerateConfigContent())
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployGameDir, "game-dir", "", "Game installation directory")
	deployCmd.Flags().BoolVar(&deployCopy, "copy", false, "Copy files instead of symlinking")
}
