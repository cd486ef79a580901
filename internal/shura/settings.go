package shura

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/color"
)

// handleSettingsCommand provides an interactive menu for the persistent
// defaults in shura.conf. Per-invocation flags always win over these.
func handleSettingsCommand(cfg *Config) error {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println()
		stageBanner("Shura Settings")
		fmt.Println("--------------------------------")

		fmt.Printf("1) Default architecture: [%s]\n", color.Note.Sprint(cfg.getDefault("SHURA_ARCH", "riscv64")))
		fmt.Printf("2) Default board: [%s]\n", color.Note.Sprint(cfg.getDefault("SHURA_BOARD", "none")))
		fmt.Printf("3) Default mode: [%s]\n", color.Note.Sprint(cfg.getDefault("SHURA_MODE", "debug")))
		fmt.Printf("4) Kernel log level: [%s]\n", color.Note.Sprint(cfg.getDefault("SHURA_LOG", "warn")))
		fmt.Printf("5) SD card mount point: [%s]\n", color.Note.Sprint(cfg.getDefault("SHURA_SDCARD", "unset")))

		debugStatus := "Disabled"
		if Debug {
			debugStatus = "Enabled"
		}
		fmt.Printf("6) Toggle debug output: [%s]\n", color.Note.Sprint(debugStatus))

		fmt.Println("q) Quit")
		fmt.Println("--------------------------------")
		fmt.Print("Choice: ")

		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)
		if choice == "q" {
			break
		}

		prompt := func(key, label string) {
			fmt.Printf("New value for %s: ", label)
			value, _ := reader.ReadString('\n')
			value = strings.TrimSpace(value)
			if value == "" {
				return
			}
			if err := setConfigValue(cfg, key, value); err != nil {
				colError.Printf("Error: %v\n", err)
			} else {
				colSuccess.Printf("%s updated.\n", label)
			}
		}

		switch choice {
		case "1":
			prompt("SHURA_ARCH", "default architecture")
		case "2":
			prompt("SHURA_BOARD", "default board")
		case "3":
			prompt("SHURA_MODE", "default mode")
		case "4":
			prompt("SHURA_LOG", "kernel log level")
		case "5":
			prompt("SHURA_SDCARD", "SD card mount point")
		case "6":
			Debug = !Debug
			newValue := "0"
			if Debug {
				newValue = "1"
			}
			if err := setConfigValue(cfg, "SHURA_DEBUG", newValue); err != nil {
				colError.Printf("Error: %v\n", err)
			} else {
				colSuccess.Println("Debug output updated.")
			}
		default:
			colWarn.Println("Unknown choice.")
		}
	}
	return nil
}
