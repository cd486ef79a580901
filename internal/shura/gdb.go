package shura

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
)

// handleDebugCommand builds the kernel, boots it frozen with the gdb stub
// open, and attaches the architecture's cross-gdb. When the debugger exits,
// the emulator is torn down with it.
func handleDebugCommand(args []string, cfg *Config) error {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	p := bindBuildFlags(fs, cfg)
	trace := fs.String("d", "", "qemu trace selector, passed through verbatim")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pipe, err := PreparePipeline(*p)
	if err != nil {
		return err
	}
	if err := pipe.Build(UserExec); err != nil {
		return err
	}
	if err := pipe.ensureUserImg(UserExec); err != nil {
		return err
	}

	spec, err := ComposeLaunchSpec(pipe.Config, pipe.Chain.Artifact.Path,
		LaunchOptions{Trace: *trace, GDB: true})
	if err != nil {
		return err
	}

	stageBanner("Launching %s with gdb stub on :1234", spec.Binary)
	qemu := exec.CommandContext(UserExec.Context, spec.Binary, spec.Args()...)
	qemu.Stdout = os.Stdout
	qemu.Stderr = os.Stderr
	if err := qemu.Start(); err != nil {
		return fmt.Errorf("failed to start emulator: %w", err)
	}
	defer func() {
		if qemu.Process != nil {
			qemu.Process.Kill()
			qemu.Wait()
		}
	}()

	elf := kernelELFPath(pipe.Config.OutputDir())
	gdbExec := &Executor{Context: UserExec.Context, Interactive: true}
	gdbCmd := exec.Command(pipe.Toolchain.Gdb,
		"-ex", "file "+elf,
		"-ex", "target remote localhost:1234",
	)
	if err := gdbExec.Run(gdbCmd); err != nil {
		return fmt.Errorf("debugger exited with error: %w", err)
	}
	return nil
}
