package main

import (
	"os"

	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"storyloom/pkg/config"
	"storyloom/pkg/inference"
	"storyloom/pkg/project"
	"storyloom/pkg/tts"
)

func main() {
	var projectPath string

	root := &cobra.Command{
		Use:          "storyloom",
		Short:        "Project content pipeline for serialized narrative authoring",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(projectPath)
		},
	}
	root.Flags().StringVar(&projectPath, "project", "", "path to the project directory to open")

	if err := root.Execute(); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// run opens the project, reports its pipeline state, and exits.
func run(projectPath string) error {
	cfg := config.New(config.DefaultPath())

	if projectPath == "" {
		projectPath = cfg.GetString(config.KeyLastProjectPath, "")
	}
	if projectPath == "" {
		log.Info("no project selected, nothing to do", "hint", "pass --project <path>")
		return nil
	}

	store, err := project.Open(projectPath)
	if err != nil {
		return err
	}
	defer store.Close()

	model := project.LoadModel(store)
	cfg.Set(config.KeyLastProjectPath, store.Root())
	cfg.Save()

	scripted := 0
	storyboarded := 0
	for _, ch := range model.Chapters() {
		rec := store.LoadScript(ch.Number())
		if rec == nil {
			continue
		}
		if rec.Script != "" {
			scripted++
		}
		if len(rec.Scenes) > 0 {
			storyboarded++
		}
	}

	log.Info("opened project",
		"name", store.Name(),
		"characters", len(model.Characters()),
		"chapters", len(model.Chapters()),
		"scripts", scripted,
		"storyboards", storyboarded,
	)

	provider := cfg.Provider()
	log.Info("llm provider", "name", provider, "available", inference.IsProviderAvailable(provider))

	if engine, err := tts.DefaultRegistry().Default(); err == nil {
		log.Info("tts backend", "name", engine.Name())
	} else {
		log.Warn("no tts backend available")
	}
	return nil
}
