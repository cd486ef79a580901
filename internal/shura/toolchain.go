package shura

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Toolchain names the cross tools used by the boot chains. Every field is a
// program name resolvable through PATH.
type Toolchain struct {
	Prefix  string
	Ld      string
	Objdump string
	Objcopy string
	CC      string
	As      string
	Gdb     string
	Strip   string
}

// LookPathFunc is the executable probe used during toolchain selection. It is
// injectable so selection stays testable without touching the host PATH.
type LookPathFunc func(file string) (string, error)

func toolchainFromPrefix(prefix string) Toolchain {
	return Toolchain{
		Prefix:  prefix,
		Ld:      prefix + "ld",
		Objdump: prefix + "objdump",
		Objcopy: prefix + "objcopy",
		CC:      prefix + "gcc",
		As:      prefix + "as",
		Gdb:     prefix + "gdb",
		Strip:   prefix + "strip",
	}
}

// SelectToolchain resolves the cross-toolchain prefix for the architecture.
//
// x86_64 uses the native binutils except on darwin, where the unprefixed tools
// target Mach-O and an ELF cross-binutils install is required. aarch64 has two
// common prefixes in the wild, so it probes for a working linker and falls
// back; this probe is the only host inspection in the selection path. If
// neither candidate resolves, selection fails before any build stage starts.
func SelectToolchain(arch Arch, hostOS string, lookPath LookPathFunc) (Toolchain, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	switch arch {
	case ArchX86_64:
		if hostOS == "darwin" {
			return toolchainFromPrefix("x86_64-elf-"), nil
		}
		return toolchainFromPrefix(""), nil
	case ArchRiscv32, ArchRiscv64:
		return toolchainFromPrefix("riscv64-unknown-elf-"), nil
	case ArchAarch64:
		for _, prefix := range []string{"aarch64-elf-", "aarch64-none-elf-"} {
			if _, err := lookPath(prefix + "ld"); err == nil {
				return toolchainFromPrefix(prefix), nil
			}
		}
		return Toolchain{}, fmt.Errorf("no aarch64 toolchain found: neither aarch64-elf-ld nor aarch64-none-elf-ld is in PATH")
	default:
		return Toolchain{}, fmt.Errorf("no toolchain known for architecture %q", arch)
	}
}

// HostToolchain selects for the running host OS with the real PATH probe.
func HostToolchain(arch Arch) (Toolchain, error) {
	return SelectToolchain(arch, runtime.GOOS, exec.LookPath)
}
