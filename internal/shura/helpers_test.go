package shura

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// fakeRunner records composed commands instead of executing them. Stages only
// see the runner interface, so chains can be exercised without a toolchain.
type fakeRunner struct {
	calls   [][]string
	onRun   func(args []string) error
	sysroot string
}

func (f *fakeRunner) Run(cmd *exec.Cmd) error {
	args := append([]string(nil), cmd.Args...)
	f.calls = append(f.calls, args)
	if f.onRun != nil {
		return f.onRun(args)
	}
	return nil
}

func (f *fakeRunner) Output(cmd *exec.Cmd) (string, error) {
	f.calls = append(f.calls, append([]string(nil), cmd.Args...))
	return f.sysroot, nil
}

// outputWritingRunner feeds canned output into the command's stdout before
// delegating, for stages that parse what the external tool printed.
type outputWritingRunner struct {
	*fakeRunner
	stdout string
}

func (o *outputWritingRunner) Run(cmd *exec.Cmd) error {
	if cmd.Stdout != nil {
		io.WriteString(cmd.Stdout, o.stdout)
	}
	return o.fakeRunner.Run(cmd)
}

// restoreBuildGlobals points the directory layout at a temp tree and restores
// it when the test finishes.
func restoreBuildGlobals(t *testing.T) {
	t.Helper()
	oldBuild, oldKernel, oldPk, oldLoader, oldUser, oldImg :=
		BuildRoot, KernelDir, PkDir, BootloaderDir, UserDir, UserImg

	tmp := t.TempDir()
	BuildRoot = filepath.Join(tmp, "build")
	KernelDir = filepath.Join(tmp, "kernel")
	PkDir = filepath.Join(tmp, "riscv-pk")
	BootloaderDir = filepath.Join(tmp, "bootloader")
	UserDir = filepath.Join(tmp, "user")
	UserImg = filepath.Join(tmp, "user", "build", "user.img")

	t.Cleanup(func() {
		BuildRoot, KernelDir, PkDir, BootloaderDir, UserDir, UserImg =
			oldBuild, oldKernel, oldPk, oldLoader, oldUser, oldImg
	})
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustNormalize(t *testing.T, p Params) BuildConfig {
	t.Helper()
	cfg, err := NormalizeParams(p)
	if err != nil {
		t.Fatalf("NormalizeParams(%+v): %v", p, err)
	}
	return cfg
}
