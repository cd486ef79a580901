package shura

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func stageNames(c *BootChain) []string {
	names := make([]string, len(c.Stages))
	for i, st := range c.Stages {
		names[i] = st.Name
	}
	return names
}

func TestComposeBootChainStageOrder(t *testing.T) {
	restoreBuildGlobals(t)

	tests := []struct {
		arch     string
		board    string
		want     []string
		kind     ArtifactKind
		artifact string
	}{
		{arch: "x86_64", want: []string{"bootimage"}, kind: CombinedImage, artifact: "bootimage.bin"},
		{arch: "riscv32", want: []string{"patch-atomics", "compile", "supervisor-wrap"}, kind: SupervisorImage, artifact: "kernel.img"},
		{arch: "riscv64", want: []string{"patch-atomics", "compile", "supervisor-wrap"}, kind: SupervisorImage, artifact: "kernel.img"},
		{arch: "riscv64", board: "k210", want: []string{"patch-atomics", "compile", "supervisor-wrap"}, kind: SupervisorImage, artifact: "kernel.img"},
		{arch: "aarch64", want: []string{"compile", "bootloader-wrap"}, kind: BootloaderBinary, artifact: "kernel8.img"},
	}

	for _, tt := range tests {
		t.Run(tt.arch+"/"+tt.board, func(t *testing.T) {
			cfg := mustNormalize(t, Params{Arch: tt.arch, Board: tt.board})
			chain, err := ComposeBootChain(cfg, ResolveFeatures(cfg), toolchainFromPrefix("test-"))
			if err != nil {
				t.Fatalf("ComposeBootChain: %v", err)
			}
			if got := stageNames(chain); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stages = %v, want %v", got, tt.want)
			}
			if chain.Artifact.Kind != tt.kind {
				t.Errorf("artifact kind = %d, want %d", chain.Artifact.Kind, tt.kind)
			}
			if filepath.Base(chain.Artifact.Path) != tt.artifact {
				t.Errorf("artifact = %s, want %s", chain.Artifact.Path, tt.artifact)
			}
			if !strings.HasPrefix(chain.Artifact.Path, cfg.OutputDir()) {
				t.Errorf("artifact %s not under output dir %s", chain.Artifact.Path, cfg.OutputDir())
			}
		})
	}
}

func TestComposeBootChainIdempotent(t *testing.T) {
	restoreBuildGlobals(t)

	cfg := mustNormalize(t, Params{Arch: "riscv64"})
	feats := ResolveFeatures(cfg)
	tc := toolchainFromPrefix("riscv64-unknown-elf-")

	first, err := ComposeBootChain(cfg, feats, tc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ComposeBootChain(cfg, feats, tc)
	if err != nil {
		t.Fatal(err)
	}
	if first.Artifact != second.Artifact {
		t.Errorf("artifact changed between compositions: %+v vs %+v", first.Artifact, second.Artifact)
	}

	specA, err := ComposeLaunchSpec(cfg, first.Artifact.Path, LaunchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	specB, err := ComposeLaunchSpec(cfg, second.Artifact.Path, LaunchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(specA, specB) {
		t.Errorf("launch specs differ for identical builds:\n%v\n%v", specA, specB)
	}
}

func TestSupervisorWrapRequiresCompiledKernel(t *testing.T) {
	restoreBuildGlobals(t)

	cfg := mustNormalize(t, Params{Arch: "riscv64"})
	r := &fakeRunner{}

	stage := supervisorWrapStage(cfg, cfg.OutputDir())
	err := stage.Run(r)
	if err == nil {
		t.Fatal("supervisor wrap ran without a compiled kernel")
	}
	if len(r.calls) != 0 {
		t.Errorf("supervisor wrap invoked %d external commands before checking the kernel binary", len(r.calls))
	}
}

func TestSupervisorWrapRunsConfigureThenMake(t *testing.T) {
	restoreBuildGlobals(t)

	cfg := mustNormalize(t, Params{Arch: "riscv64"})
	out := cfg.OutputDir()
	mustWriteFile(t, kernelELFPath(out), "elf")

	r := &fakeRunner{}
	r.onRun = func(args []string) error {
		if args[0] == "make" {
			mustWriteFile(t, filepath.Join(out, "pk", "bbl"), "bbl")
		}
		return nil
	}

	if err := supervisorWrapStage(cfg, out).Run(r); err != nil {
		t.Fatalf("supervisor wrap: %v", err)
	}

	if len(r.calls) != 2 {
		t.Fatalf("expected configure + make, got %d calls: %v", len(r.calls), r.calls)
	}
	if !strings.HasSuffix(r.calls[0][0], "configure") {
		t.Errorf("first call %v is not configure", r.calls[0])
	}
	if r.calls[1][0] != "make" {
		t.Errorf("second call %v is not make", r.calls[1])
	}
	if !fileExists(filepath.Join(out, "kernel.img")) {
		t.Error("supervisor wrap did not publish kernel.img")
	}
}

func TestSupervisorWrapRiscv32TargetsRv32(t *testing.T) {
	restoreBuildGlobals(t)

	cfg := mustNormalize(t, Params{Arch: "riscv32"})
	out := cfg.OutputDir()
	mustWriteFile(t, kernelELFPath(out), "elf")

	r := &fakeRunner{}
	r.onRun = func(args []string) error {
		if args[0] == "make" {
			mustWriteFile(t, filepath.Join(out, "pk", "bbl"), "bbl")
		}
		return nil
	}
	if err := supervisorWrapStage(cfg, out).Run(r); err != nil {
		t.Fatalf("supervisor wrap: %v", err)
	}

	joined := strings.Join(r.calls[0], " ")
	if !strings.Contains(joined, "--with-arch=rv32imac") {
		t.Errorf("riscv32 configure args missing rv32 arch: %v", r.calls[0])
	}
}

func TestBootloaderWrapRemovesScratchOnFailure(t *testing.T) {
	restoreBuildGlobals(t)

	cfg := mustNormalize(t, Params{Arch: "aarch64"})
	out := cfg.OutputDir()
	mustWriteFile(t, kernelELFPath(out), "elf")

	payload := filepath.Join(out, "kernel.payload")
	r := &fakeRunner{}
	r.onRun = func(args []string) error {
		if args[0] == "make" {
			return errors.New("bootloader build exploded")
		}
		return nil
	}

	err := bootloaderWrapStage(cfg, toolchainFromPrefix("aarch64-elf-"), out).Run(r)
	if err == nil {
		t.Fatal("expected bootloader failure to propagate")
	}
	if _, statErr := os.Stat(payload); !os.IsNotExist(statErr) {
		t.Errorf("scratch payload %s still exists after failure", payload)
	}
}

func TestBootloaderWrapRemovesScratchOnSuccess(t *testing.T) {
	restoreBuildGlobals(t)

	cfg := mustNormalize(t, Params{Arch: "aarch64"})
	out := cfg.OutputDir()
	mustWriteFile(t, kernelELFPath(out), "elf")

	payload := filepath.Join(out, "kernel.payload")
	tc := toolchainFromPrefix("aarch64-elf-")
	r := &fakeRunner{}

	if err := bootloaderWrapStage(cfg, tc, out).Run(r); err != nil {
		t.Fatalf("bootloader wrap: %v", err)
	}
	if _, statErr := os.Stat(payload); !os.IsNotExist(statErr) {
		t.Errorf("scratch payload %s still exists after success", payload)
	}

	if len(r.calls) != 3 {
		t.Fatalf("expected strip, make, objcopy; got %v", r.calls)
	}
	if r.calls[0][0] != tc.Strip {
		t.Errorf("first call %v is not the symbol stripper", r.calls[0])
	}
	if r.calls[1][0] != "make" {
		t.Errorf("second call %v is not the bootloader build", r.calls[1])
	}
	if r.calls[2][0] != tc.Objcopy {
		t.Errorf("third call %v is not the image conversion", r.calls[2])
	}
	// Strip must operate on the scratch copy, never the published kernel.
	if r.calls[0][1] != payload {
		t.Errorf("strip ran on %s, want scratch copy %s", r.calls[0][1], payload)
	}
}

func TestPatchAtomicsAlreadyAppliedIsSuccess(t *testing.T) {
	restoreBuildGlobals(t)

	// The fake reports failure with patch's "previously applied" message; the
	// stage must swallow it.
	r := &fakeRunner{sysroot: t.TempDir()}
	r.onRun = func(args []string) error {
		if args[0] == "patch" {
			return errors.New("exit status 1")
		}
		return nil
	}

	stage := patchAtomicsStage()
	// Stuff the message through the command's captured output by running the
	// stage with a runner that writes it.
	r2 := &outputWritingRunner{fakeRunner: r, stdout: "Reversed (or previously applied) patch detected!  Skipping patch.\n"}
	if err := stage.Run(r2); err != nil {
		t.Fatalf("already-applied patch treated as failure: %v", err)
	}
}
