package shura

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
)

// printHelp prints the commands table
func printHelp() {
	colSuccess.Println("Usage: shura <command> [arguments]")
	colSuccess.Println("Run 'shura <command> -h' for command options")
	fmt.Println()
	color.Info.Println("Available Commands:")

	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"build, b", "[options]", "Build the bootable kernel image"},
		{"run, r", "[options]", "Build and boot the kernel under QEMU"},
		{"justrun", "[options]", "Boot the existing artifact without rebuilding"},
		{"gui", "[options]", "Build and boot with a graphical window"},
		{"debug", "[options]", "Boot frozen with a gdb stub and attach the debugger"},
		{"asm", "[options]", "Disassemble the built kernel"},
		{"install", "[-sdcard <mnt>]", "Copy the bootable image onto a mounted SD card"},
		{"dist", "[-format xz|gz|zst]", "Archive the artifact tree for distribution"},
		{"upload", "[options]", "Publish a dist archive to the R2 bucket"},
		{"clean", "[-y]", "Remove the entire build tree"},
		{"doctor", "", "Check emulators, toolchains and collaborator projects"},
		{"settings", "", "Edit persistent defaults interactively"},
		{"version, --version", "", "Version information"},
	}

	maxLen := 0
	for _, c := range cmds {
		length := len(c.Cmd) + len(c.Args)
		if c.Args != "" {
			length++
		}
		if length > maxLen {
			maxLen = length
		}
	}
	columnWidth := maxLen + 4

	for _, c := range cmds {
		var usageString string
		if c.Args != "" {
			usageString = fmt.Sprintf("  %s %s", c.Cmd, c.Args)
		} else {
			usageString = fmt.Sprintf("  %s", c.Cmd)
		}

		fmt.Print("  ")
		color.Bold.Print(c.Cmd)
		if c.Args != "" {
			fmt.Print(" ")
			color.Cyan.Print(c.Args)
		}

		pad := columnWidth - len(usageString)
		if pad < 1 {
			pad = 1
		}
		fmt.Print(strings.Repeat(" ", pad))
		color.Info.Println(c.Desc)
	}
	fmt.Println()
}

// Main is the CLI entrypoint for cmd shura.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// Graceful cancellation on the first interrupt; during a critical phase
	// (SD card install) the first signal is blocked and a second one forces
	// an immediate exit.
	go func() {
		for {
			select {
			case sig := <-sigs:
				if isCriticalAtomic.Load() == 1 {
					colArrow.Print("\n-> ")
					colError.Printf("Critical operation in progress (install). Press Ctrl+C AGAIN to force exit NOW.\n")
					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						colError.Printf("Forced immediate exit.")
						os.Exit(130)
					case <-time.After(5 * time.Second):
						continue
					case <-ctx.Done():
						return
					}
				} else {
					colArrow.Print("\n-> ")
					color.Danger.Printf("Received %v. Cancelling process gracefully\n", sig)
					cancel()
					time.Sleep(100 * time.Millisecond)
					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						color.Danger.Printf("Second interrupt received. Forcing immediate exit.")
						os.Exit(130)
					case <-time.After(2 * time.Second):
						colArrow.Print("\n-> ")
						color.Danger.Printf("Graceful shutdown timeout. Exiting.")
						os.Exit(0)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if ctx.Err() != nil {
		return
	}

	if len(os.Args) < 2 {
		printHelp()
		return
	}

	configPath := ConfigFile
	if root := os.Getenv("SHURA_CONFIG"); root != "" {
		configPath = root
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", configPath, err)
	}
	initConfig(cfg)

	UserExec = &Executor{Context: ctx}
	RootExec = &Executor{Context: ctx, ShouldRunAsRoot: true}

	fail := func(what string, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", what, err)
			os.Exit(1)
		}
	}

	switch os.Args[1] {
	case "build", "b":
		fail("Build", handleBuildCommand(os.Args[2:], cfg))

	case "run", "r":
		fail("Run", handleRunCommand(os.Args[2:], cfg, true, false))

	case "justrun":
		fail("Run", handleRunCommand(os.Args[2:], cfg, false, false))

	case "gui":
		fail("Run", handleRunCommand(os.Args[2:], cfg, true, true))

	case "debug":
		fail("Debug", handleDebugCommand(os.Args[2:], cfg))

	case "asm":
		fail("Disassembly", handleAsmCommand(os.Args[2:], cfg))

	case "install":
		fail("Install", handleInstallCommand(os.Args[2:], cfg))

	case "dist":
		fail("Dist", handleDistCommand(os.Args[2:], cfg))

	case "upload":
		fail("Upload", handleUploadCommand(os.Args[2:], cfg))

	case "clean":
		fail("Clean", handleCleanCommand(os.Args[2:]))

	case "doctor":
		fail("Doctor", handleDoctorCommand())

	case "settings":
		fail("Settings", handleSettingsCommand(cfg))

	case "version", "--version":
		colNote.Printf("shura %s (%s) built %s\n", version, runtime.GOARCH, buildDate)

	case "help", "-h", "--help":
		printHelp()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}

	cancel()
}
