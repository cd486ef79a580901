package shura

import (
	"errors"
	"testing"
)

// lookPathFrom builds a probe that only resolves the given names.
func lookPathFrom(present ...string) LookPathFunc {
	set := make(map[string]bool, len(present))
	for _, name := range present {
		set[name] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestSelectToolchainAarch64Probe(t *testing.T) {
	tests := []struct {
		name       string
		present    []string
		wantPrefix string
		wantErr    bool
	}{
		{name: "primary present", present: []string{"aarch64-elf-ld"}, wantPrefix: "aarch64-elf-"},
		{name: "secondary only", present: []string{"aarch64-none-elf-ld"}, wantPrefix: "aarch64-none-elf-"},
		{name: "both present prefers primary", present: []string{"aarch64-elf-ld", "aarch64-none-elf-ld"}, wantPrefix: "aarch64-elf-"},
		{name: "neither present fails", present: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := SelectToolchain(ArchAarch64, "linux", lookPathFrom(tt.present...))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected probe failure, got toolchain %+v", tc)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.Prefix != tt.wantPrefix {
				t.Errorf("prefix = %q, want %q", tc.Prefix, tt.wantPrefix)
			}
			if tc.Ld != tt.wantPrefix+"ld" || tc.Gdb != tt.wantPrefix+"gdb" {
				t.Errorf("tool names not derived from prefix: %+v", tc)
			}
		})
	}
}

func TestSelectToolchainX86HostOverride(t *testing.T) {
	linux, err := SelectToolchain(ArchX86_64, "linux", lookPathFrom())
	if err != nil {
		t.Fatalf("linux: %v", err)
	}
	if linux.Prefix != "" || linux.Ld != "ld" {
		t.Errorf("linux x86_64 should use native binutils, got %+v", linux)
	}

	darwin, err := SelectToolchain(ArchX86_64, "darwin", lookPathFrom())
	if err != nil {
		t.Fatalf("darwin: %v", err)
	}
	if darwin.Prefix != "x86_64-elf-" {
		t.Errorf("darwin x86_64 prefix = %q, want x86_64-elf-", darwin.Prefix)
	}
}

func TestSelectToolchainRiscvSharedPrefix(t *testing.T) {
	for _, arch := range []Arch{ArchRiscv32, ArchRiscv64} {
		tc, err := SelectToolchain(arch, "linux", lookPathFrom())
		if err != nil {
			t.Fatalf("%s: %v", arch, err)
		}
		if tc.Prefix != "riscv64-unknown-elf-" {
			t.Errorf("%s prefix = %q, want riscv64-unknown-elf-", arch, tc.Prefix)
		}
	}
}

func TestSelectToolchainNoProbeOutsideAarch64(t *testing.T) {
	probed := false
	spy := func(file string) (string, error) {
		probed = true
		return "", errors.New("not found")
	}
	for _, arch := range []Arch{ArchX86_64, ArchRiscv32, ArchRiscv64} {
		if _, err := SelectToolchain(arch, "linux", spy); err != nil {
			t.Fatalf("%s: %v", arch, err)
		}
	}
	if probed {
		t.Error("host probe ran for an architecture with a static toolchain table")
	}
}
