package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/thatsimonsguy/padswitch/db"
	"github.com/thatsimonsguy/padswitch/internal/config"
	"github.com/thatsimonsguy/padswitch/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, configFile string
	var limit int
	var olderThan time.Duration
	flag.StringVar(&dbPath, "db", "data/padswitch.db", "Path to the SQLite event journal")
	flag.StringVar(&command, "cmd", "", "Command to run: history, prune, boot-script, apply-boot-script, install")
	flag.StringVar(&configFile, "config-file", "", "Switch config file for boot-script and install (empty for defaults)")
	flag.IntVar(&limit, "limit", 20, "Number of events for history")
	flag.DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff for prune")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of padswitch-debug:")
		fmt.Println("  -db string\tPath to the SQLite event journal (default 'data/padswitch.db')")
		fmt.Println("  -cmd string\tCommand to run: history, prune, boot-script, apply-boot-script, install")
		fmt.Println("  -config-file string\tSwitch config file for boot-script and install")
		fmt.Println("  -limit int\tNumber of events for history (default 20)")
		fmt.Println("  -older-than duration\tAge cutoff for prune (default 720h)")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "history":
		err = db.PrintHistoryCLI(os.Stdout, dbPath, limit)
	case "prune":
		err = db.PruneCLI(os.Stdout, dbPath, olderThan)
	case "boot-script":
		var cfg config.Config
		if cfg, err = loadConfig(configFile); err == nil {
			fmt.Print(startup.RenderStartupScript(cfg))
		}
	case "apply-boot-script":
		var cfg config.Config
		if cfg, err = loadConfig(configFile); err == nil {
			err = startup.RunStartupScript(cfg)
		}
	case "install":
		var cfg config.Config
		if cfg, err = loadConfig(configFile); err == nil {
			cfg.ConfigFile = configFile
			err = startup.Install(cfg)
		}
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	if command != "history" && command != "boot-script" {
		fmt.Printf("Command %s completed successfully\n", command)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}
