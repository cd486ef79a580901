package shura

import (
	"flag"
	"fmt"
	"os/exec"
	"path/filepath"
)

// handleInstallCommand copies the bootable artifact onto a mounted SD card.
// The copy runs with root privileges and is marked critical so a stray Ctrl+C
// does not leave a half-written boot image on the card.
func handleInstallCommand(args []string, cfg *Config) error {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	p := bindBuildFlags(fs, cfg)
	mount := fs.String("sdcard", SDCardMount, "mount point of the target SD card")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mount == "" {
		return fmt.Errorf("no SD card mount point given (use -sdcard or set SHURA_SDCARD)")
	}
	if !dirExists(*mount) {
		return fmt.Errorf("SD card mount point %s does not exist", *mount)
	}

	bc, err := NormalizeParams(*p)
	if err != nil {
		return err
	}
	feats := ResolveFeatures(bc)
	tc, err := HostToolchain(bc.Arch)
	if err != nil {
		return err
	}
	chain, err := ComposeBootChain(bc, feats, tc)
	if err != nil {
		return err
	}
	artifact := chain.Artifact.Path
	if !fileExists(artifact) {
		return fmt.Errorf("no bootable artifact at %s, run 'shura build' first", artifact)
	}

	stageBanner("Installing %s to %s", artifact, *mount)

	isCriticalAtomic.Store(1)
	defer isCriticalAtomic.Store(0)

	dest := filepath.Join(*mount, filepath.Base(artifact))
	if err := RootExec.Run(exec.Command("cp", artifact, dest)); err != nil {
		return fmt.Errorf("install copy failed: %w", err)
	}
	if err := RootExec.Run(exec.Command("sync")); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	stageBanner("Installed. You can unmount %s now.", *mount)
	return nil
}
