package shura

import (
	"flag"
	"fmt"
	"os"
)

// handleCleanCommand removes the build-output tree. This is the only way
// artifacts are ever deleted; builds overwrite in place and never version.
func handleCleanCommand(args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !dirExists(BuildRoot) {
		colArrow.Print("-> ")
		colSuccess.Println("Nothing to clean.")
		return nil
	}

	colArrow.Print("-> ")
	cPrintf(colWarn, "This will delete the entire build tree at %s.\n", BuildRoot)
	if !*yes && !askForConfirmation(colArrow, "Are you sure you want to proceed?") {
		stageBanner("Clean canceled.")
		return nil
	}

	if err := os.RemoveAll(BuildRoot); err != nil {
		return fmt.Errorf("failed to remove build tree: %w", err)
	}
	stageBanner("Build tree removed.")
	return nil
}
