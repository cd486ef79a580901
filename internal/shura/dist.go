package shura

import (
	"archive/tar"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// distTarballName is the archive name for one (architecture, mode) tree.
func distTarballName(arch Arch, mode Mode, format string) string {
	return fmt.Sprintf("shura-%s-%s.tar.%s", arch, mode, format)
}

// treeSize sums the regular files under dir, for the progress bar.
func treeSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// createDistArchive packs the artifact tree into build/<tarball> using the
// requested compression (xz, gz via pgzip, or zstd).
func createDistArchive(bc BuildConfig, format string) (string, error) {
	dir := bc.OutputDir()
	outPath := filepath.Join(BuildRoot, distTarballName(bc.Arch, bc.Mode, format))

	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	var zw io.WriteCloser
	switch format {
	case "xz":
		zw, err = xz.NewWriter(out)
	case "gz":
		zw = pgzip.NewWriter(out)
	case "zst":
		zw, err = zstd.NewWriter(out)
	default:
		return "", fmt.Errorf("unknown archive format %q (expected xz, gz or zst)", format)
	}
	if err != nil {
		return "", err
	}

	total, err := treeSize(dir)
	if err != nil {
		return "", err
	}
	bar := progressbar.DefaultBytes(total, "archiving")

	tw := tar.NewWriter(zw)
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(io.MultiWriter(tw, bar), f)
		return err
	})
	if err != nil {
		return "", err
	}
	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return outPath, nil
}

// handleDistCommand archives one built artifact tree for distribution. The
// tree's manifest is verified first so a corrupted build never ships.
func handleDistCommand(args []string, cfg *Config) error {
	fs := flag.NewFlagSet("dist", flag.ExitOnError)
	p := bindBuildFlags(fs, cfg)
	format := fs.String("format", "xz", "archive compression (xz, gz, zst)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bc, err := NormalizeParams(*p)
	if err != nil {
		return err
	}
	dir := bc.OutputDir()
	if !dirExists(dir) {
		return fmt.Errorf("no build tree at %s, run 'shura build' first", dir)
	}

	stageBanner("Verifying artifact manifest")
	if err := verifyManifest(dir); err != nil {
		return fmt.Errorf("manifest verification failed: %w", err)
	}

	tarball, err := createDistArchive(bc, *format)
	if err != nil {
		return err
	}
	sum, err := hashFile(tarball)
	if err != nil {
		return err
	}
	stageBanner("Wrote %s (blake3 %s)", tarball, sum[:16])
	return nil
}
