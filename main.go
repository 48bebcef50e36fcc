package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

// The bundled frontend is only a loading page; startup navigates to the local server.
//
//go:embed frontend/*
var assets embed.FS

const appTitle = "Rider Router"

func main() {
	if err := wails.Run(desktopOptions(NewApp())); err != nil {
		log.Fatal(err)
	}
}

func desktopOptions(app *App) *options.App {
	return &options.App{
		Title:            appTitle,
		Width:            1100,
		Height:           800,
		MinWidth:         720,
		MinHeight:        540,
		BackgroundColour: &options.RGBA{R: 250, G: 250, B: 247, A: 255},
		AssetServer:      &assetserver.Options{Assets: assets},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind:             []interface{}{app},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   appTitle,
				Message: "Single-vehicle pickup routing from a rider roster",
			},
		},
		Windows: &windows.Options{},
		Linux: &linux.Options{
			ProgramName:      appTitle,
			WebviewGpuPolicy: linux.WebviewGpuPolicyOnDemand,
		},
	}
}
