package shura

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// runner is the execution capability a stage needs. The Orchestrator hands in
// a real Executor; tests substitute a fake to inspect the composed commands.
type runner interface {
	Run(cmd *exec.Cmd) error
	Output(cmd *exec.Cmd) (string, error)
}

// ArtifactKind tags the bootable artifact each architecture produces.
type ArtifactKind int

const (
	CombinedImage    ArtifactKind = iota // kernel + first-stage loader in one blob (x86_64)
	SupervisorImage                      // kernel wrapped in the riscv proxy kernel (riscv32/64)
	BootloaderBinary                     // bootloader ELF converted to a raw image (aarch64)
)

// BootArtifact is the final bootable output of a chain.
type BootArtifact struct {
	Kind  ArtifactKind
	Path  string
	Stage string // name of the stage that produces it
}

// Stage is one step of a boot chain. Stages are composed as pure data; only
// the Orchestrator executes them, in order, aborting on the first failure.
type Stage struct {
	Name string
	Run  func(r runner) error
}

// BootChain is the ordered stage sequence for one (architecture, mode) build,
// culminating in a single bootable artifact.
type BootChain struct {
	Stages   []Stage
	Artifact BootArtifact
}

// ComposeBootChain resolves the architecture into its stage sequence. The four
// chains are a closed set; adding an architecture means adding a case here.
func ComposeBootChain(cfg BuildConfig, feats []string, tc Toolchain) (*BootChain, error) {
	out := cfg.OutputDir()

	switch cfg.Arch {
	case ArchX86_64:
		return &BootChain{
			Stages: []Stage{bootimageStage(cfg, feats, out)},
			Artifact: BootArtifact{
				Kind:  CombinedImage,
				Path:  filepath.Join(out, "bootimage.bin"),
				Stage: "bootimage",
			},
		}, nil

	case ArchRiscv32, ArchRiscv64:
		return &BootChain{
			Stages: []Stage{
				patchAtomicsStage(),
				compileKernelStage(cfg, feats, out),
				supervisorWrapStage(cfg, out),
			},
			Artifact: BootArtifact{
				Kind:  SupervisorImage,
				Path:  filepath.Join(out, "kernel.img"),
				Stage: "supervisor-wrap",
			},
		}, nil

	case ArchAarch64:
		return &BootChain{
			Stages: []Stage{
				compileKernelStage(cfg, feats, out),
				bootloaderWrapStage(cfg, tc, out),
			},
			Artifact: BootArtifact{
				Kind:  BootloaderBinary,
				Path:  filepath.Join(out, "kernel8.img"),
				Stage: "bootloader-wrap",
			},
		}, nil

	default:
		return nil, fmt.Errorf("no boot chain for architecture %q", cfg.Arch)
	}
}

// kernelELFPath is where the compile stage publishes the raw kernel binary.
func kernelELFPath(out string) string {
	return filepath.Join(out, "kernel.elf")
}

// cargoTargetOutput is where cargo places the binary for a custom target JSON.
func cargoTargetOutput(cfg BuildConfig, name string) string {
	return filepath.Join(KernelDir, "target", string(cfg.Arch), string(cfg.Mode), name)
}

func kernelBuildEnv(cfg BuildConfig) []string {
	return append(os.Environ(),
		"LOG="+cfg.LogLevel,
		"SMP="+strconv.Itoa(cfg.SMP),
		"BOARD="+string(cfg.Board),
	)
}

// patchAtomicsStage applies the atomics workaround to the standard-library
// source the riscv targets build against. The patch is a one-time fixup:
// finding it already applied is success, not failure.
func patchAtomicsStage() Stage {
	return Stage{
		Name: "patch-atomics",
		Run: func(r runner) error {
			sysroot, err := r.Output(exec.Command("rustc", "--print", "sysroot"))
			if err != nil {
				return fmt.Errorf("cannot locate rust sysroot: %w", err)
			}
			atomicSrc := filepath.Join(sysroot,
				"lib", "rustlib", "src", "rust", "library", "core", "src", "sync", "atomic.rs")
			patchFile := filepath.Join(KernelDir, "targets", "riscv-atomic.patch")

			var out bytes.Buffer
			cmd := exec.Command("patch", "-N", atomicSrc, patchFile)
			cmd.Stdout = &out
			cmd.Stderr = &out
			if err := r.Run(cmd); err != nil {
				text := out.String()
				if strings.Contains(text, "previously applied") ||
					strings.Contains(text, "Skipping patch") {
					debugf("atomics patch already applied, continuing\n")
					return nil
				}
				return fmt.Errorf("atomics patch failed: %w\n%s", err, text)
			}
			return nil
		},
	}
}

// compileKernelStage cross-compiles the bare kernel against the target
// description, threading the feature tokens through as cargo features, and
// publishes it into the build tree.
func compileKernelStage(cfg BuildConfig, feats []string, out string) Stage {
	return Stage{
		Name: "compile",
		Run: func(r runner) error {
			args := []string{"build", "--target",
				filepath.Join(KernelDir, "targets", string(cfg.Arch)+".json")}
			if cfg.Mode == ModeRelease {
				args = append(args, "--release")
			}
			if len(feats) > 0 {
				args = append(args, "--features", strings.Join(feats, " "))
			}
			cmd := exec.Command("cargo", args...)
			cmd.Dir = KernelDir
			cmd.Env = kernelBuildEnv(cfg)
			if err := r.Run(cmd); err != nil {
				return fmt.Errorf("kernel compile failed: %w", err)
			}

			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			return copyFile(cargoTargetOutput(cfg, "kernel"), kernelELFPath(out))
		},
	}
}

// supervisorWrapStage drives the external proxy-kernel build with the compiled
// kernel as payload. It is the most expensive and furthest-downstream stage:
// a failure here is fatal and never retried. The proxy kernel builds in a
// nested scratch tree under the artifact directory.
func supervisorWrapStage(cfg BuildConfig, out string) Stage {
	return Stage{
		Name: "supervisor-wrap",
		Run: func(r runner) error {
			payload := kernelELFPath(out)
			if !fileExists(payload) {
				return fmt.Errorf("kernel binary missing at %s; compile stage did not run", payload)
			}

			pkBuild := filepath.Join(out, "pk")
			if err := os.MkdirAll(pkBuild, 0o755); err != nil {
				return err
			}

			configure, err := filepath.Abs(filepath.Join(PkDir, "configure"))
			if err != nil {
				return err
			}
			absPayload, err := filepath.Abs(payload)
			if err != nil {
				return err
			}

			cfgArgs := []string{
				"--host=riscv64-unknown-elf",
				"--with-payload=" + absPayload,
			}
			if cfg.Arch == ArchRiscv32 {
				cfgArgs = append(cfgArgs, "--with-arch=rv32imac", "--with-abi=ilp32")
			}
			if cfg.Sv39 {
				cfgArgs = append(cfgArgs, "--enable-sv39")
			}

			confCmd := exec.Command(configure, cfgArgs...)
			confCmd.Dir = pkBuild
			if err := r.Run(confCmd); err != nil {
				return fmt.Errorf("proxy kernel configure failed: %w", err)
			}

			makeCmd := exec.Command("make", "-C", pkBuild)
			if err := r.Run(makeCmd); err != nil {
				return fmt.Errorf("proxy kernel build failed: %w", err)
			}

			return copyFile(filepath.Join(pkBuild, "bbl"), filepath.Join(out, "kernel.img"))
		},
	}
}

// bootloaderWrapStage hands a stripped copy of the kernel to the external
// bootloader build and converts the resulting ELF into a raw boot image. The
// scratch copy is removed on every exit path, including mid-stage failure.
func bootloaderWrapStage(cfg BuildConfig, tc Toolchain, out string) Stage {
	return Stage{
		Name: "bootloader-wrap",
		Run: func(r runner) error {
			payload := filepath.Join(out, "kernel.payload")
			if err := copyFile(kernelELFPath(out), payload); err != nil {
				return fmt.Errorf("cannot stage bootloader payload: %w", err)
			}
			defer func() {
				if err := os.Remove(payload); err != nil && !os.IsNotExist(err) {
					cPrintf(colWarn, "warning: could not remove scratch payload %s: %v\n", payload, err)
				}
			}()

			if err := r.Run(exec.Command(tc.Strip, payload)); err != nil {
				return fmt.Errorf("strip failed: %w", err)
			}

			absPayload, err := filepath.Abs(payload)
			if err != nil {
				return err
			}
			makeCmd := exec.Command("make", "-C", BootloaderDir,
				"ARCH="+string(cfg.Arch),
				"MODE="+string(cfg.Mode),
				"PAYLOAD="+absPayload,
			)
			if err := r.Run(makeCmd); err != nil {
				return fmt.Errorf("bootloader build failed: %w", err)
			}

			loaderELF := filepath.Join(BootloaderDir, "build", "bootloader.elf")
			objcopyCmd := exec.Command(tc.Objcopy, loaderELF, "-O", "binary",
				filepath.Join(out, "kernel8.img"))
			if err := r.Run(objcopyCmd); err != nil {
				return fmt.Errorf("bootloader image conversion failed: %w", err)
			}
			return nil
		},
	}
}

// bootimageStage produces the combined kernel+loader blob for x86_64 in a
// single step; no secondary bootloader is involved.
func bootimageStage(cfg BuildConfig, feats []string, out string) Stage {
	return Stage{
		Name: "bootimage",
		Run: func(r runner) error {
			args := []string{"bootimage", "--target",
				filepath.Join(KernelDir, "targets", string(cfg.Arch)+".json")}
			if cfg.Mode == ModeRelease {
				args = append(args, "--release")
			}
			if len(feats) > 0 {
				args = append(args, "--features", strings.Join(feats, " "))
			}
			cmd := exec.Command("cargo", args...)
			cmd.Dir = KernelDir
			cmd.Env = kernelBuildEnv(cfg)
			if err := r.Run(cmd); err != nil {
				return fmt.Errorf("bootimage generation failed: %w", err)
			}

			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			// The raw kernel ELF is published alongside the image so asm and
			// the symbol resolver have something to chew on.
			if err := copyFile(cargoTargetOutput(cfg, "kernel"), kernelELFPath(out)); err != nil {
				return err
			}
			return copyFile(cargoTargetOutput(cfg, "bootimage-kernel.bin"),
				filepath.Join(out, "bootimage.bin"))
		},
	}
}
