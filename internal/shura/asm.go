package shura

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// handleAsmCommand disassembles the built kernel with the architecture's
// objdump and pages through the result.
func handleAsmCommand(args []string, cfg *Config) error {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	p := bindBuildFlags(fs, cfg)
	symbol := fs.String("symbol", "", "only disassemble sections containing this symbol")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bc, err := NormalizeParams(*p)
	if err != nil {
		return err
	}
	tc, err := HostToolchain(bc.Arch)
	if err != nil {
		return err
	}

	elf := kernelELFPath(bc.OutputDir())
	if !fileExists(elf) {
		return fmt.Errorf("no kernel binary at %s, run 'shura build' first", elf)
	}

	dumpArgs := []string{"-d"}
	if *symbol != "" {
		dumpArgs = append(dumpArgs, "--disassemble="+*symbol)
	}
	dumpArgs = append(dumpArgs, elf)

	var out bytes.Buffer
	cmd := exec.Command(tc.Objdump, dumpArgs...)
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := UserExec.Run(cmd); err != nil {
		return fmt.Errorf("disassembly failed: %w", err)
	}

	return runPager(fmt.Sprintf("%s %s/%s", elf, bc.Arch, bc.Mode),
		strings.Split(strings.TrimRight(out.String(), "\n"), "\n"))
}
