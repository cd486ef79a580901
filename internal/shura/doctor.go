package shura

import (
	"fmt"
	"os/exec"
	"runtime"
)

// handleDoctorCommand probes the external collaborators: emulators, cross
// toolchains and the sibling project checkouts. It only reports; nothing is
// installed or fixed.
func handleDoctorCommand() error {
	missing := 0

	checkTool := func(name string) {
		if _, err := exec.LookPath(name); err == nil {
			colSuccess.Printf("  ok       %s\n", name)
		} else {
			colError.Printf("  missing  %s\n", name)
			missing++
		}
	}
	checkDir := func(label, path string) {
		if dirExists(path) {
			colSuccess.Printf("  ok       %s (%s)\n", label, path)
		} else {
			colWarn.Printf("  missing  %s (%s)\n", label, path)
		}
	}

	colInfo.Println("Build tools:")
	checkTool("cargo")
	checkTool("rustc")
	checkTool("patch")
	checkTool("make")

	colInfo.Println("Emulators:")
	for _, arch := range []Arch{ArchX86_64, ArchRiscv32, ArchRiscv64, ArchAarch64} {
		checkTool("qemu-system-" + string(arch))
	}

	colInfo.Println("Cross toolchains:")
	for _, arch := range []Arch{ArchX86_64, ArchRiscv32, ArchRiscv64, ArchAarch64} {
		tc, err := SelectToolchain(arch, runtime.GOOS, exec.LookPath)
		if err != nil {
			colError.Printf("  missing  %s: %v\n", arch, err)
			missing++
			continue
		}
		if _, err := exec.LookPath(tc.Ld); err == nil {
			colSuccess.Printf("  ok       %s (%sld)\n", arch, tc.Prefix)
		} else {
			colError.Printf("  missing  %s (%s not in PATH)\n", arch, tc.Ld)
			missing++
		}
	}

	colInfo.Println("Collaborator projects:")
	checkDir("kernel", KernelDir)
	checkDir("proxy kernel (riscv-pk)", PkDir)
	checkDir("bootloader", BootloaderDir)
	checkDir("user programs", UserDir)

	if missing > 0 {
		return fmt.Errorf("%d required tool(s) missing", missing)
	}
	stageBanner("All required tools present.")
	return nil
}
