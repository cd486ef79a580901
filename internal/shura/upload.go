package shura

import (
	"flag"
	"fmt"
	"path/filepath"
)

// handleUploadCommand publishes a dist tarball to the configured R2 bucket,
// keyed by architecture so downstream boards can fetch their own images.
func handleUploadCommand(args []string, cfg *Config) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	p := bindBuildFlags(fs, cfg)
	format := fs.String("format", "xz", "archive compression the dist step used (xz, gz, zst)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bc, err := NormalizeParams(*p)
	if err != nil {
		return err
	}

	tarball := filepath.Join(BuildRoot, distTarballName(bc.Arch, bc.Mode, *format))
	if !fileExists(tarball) {
		return fmt.Errorf("no dist archive at %s, run 'shura dist' first", tarball)
	}

	client, err := NewR2Client(cfg)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("images/%s/%s", bc.Arch, filepath.Base(tarball))
	stageBanner("Uploading %s -> %s/%s", tarball, client.BucketName, key)
	if err := client.UploadLocalFile(UserExec.Context, key, tarball); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	stageBanner("Upload complete.")
	return nil
}
