package shura

import (
	"strings"
	"testing"
)

func TestNormalizeParamsDefaults(t *testing.T) {
	cfg := mustNormalize(t, Params{})

	if cfg.Arch != ArchRiscv64 {
		t.Errorf("default arch = %s, want riscv64", cfg.Arch)
	}
	if cfg.Board != BoardNone {
		t.Errorf("default board = %s, want none", cfg.Board)
	}
	if cfg.Mode != ModeDebug {
		t.Errorf("default mode = %s, want debug", cfg.Mode)
	}
	if cfg.SMP != 4 {
		t.Errorf("default smp = %d, want 4", cfg.SMP)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("default log level = %s, want warn", cfg.LogLevel)
	}
	if cfg.Timer != TimerSystem {
		t.Errorf("default timer = %s, want system", cfg.Timer)
	}
}

func TestNormalizeParamsBoardResolution(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		wantBoard Board
		wantErr   string
	}{
		{name: "aarch64 forces raspi3", params: Params{Arch: "aarch64"}, wantBoard: BoardRaspi3},
		{name: "aarch64 accepts explicit raspi3", params: Params{Arch: "aarch64", Board: "raspi3"}, wantBoard: BoardRaspi3},
		{name: "aarch64 rejects k210", params: Params{Arch: "aarch64", Board: "k210"}, wantErr: "unsupported board"},
		{name: "riscv64 accepts k210", params: Params{Arch: "riscv64", Board: "k210"}, wantBoard: BoardK210},
		{name: "riscv64 rejects raspi3", params: Params{Arch: "riscv64", Board: "raspi3"}, wantErr: "unsupported board"},
		{name: "x86_64 rejects k210", params: Params{Arch: "x86_64", Board: "k210"}, wantErr: "unsupported board"},
		{name: "riscv32 rejects boards", params: Params{Arch: "riscv32", Board: "k210"}, wantErr: "unsupported board"},
		{name: "unknown architecture", params: Params{Arch: "mips"}, wantErr: "unsupported architecture"},
		{name: "unknown mode", params: Params{Arch: "riscv64", Mode: "fast"}, wantErr: "unknown build mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NormalizeParams(tt.params)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got config %+v", tt.wantErr, cfg)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %q does not contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Board != tt.wantBoard {
				t.Errorf("board = %s, want %s", cfg.Board, tt.wantBoard)
			}
		})
	}
}

func TestNormalizeParamsK210ForcesSv39(t *testing.T) {
	cfg := mustNormalize(t, Params{Arch: "riscv64", Board: "k210"})
	if !cfg.Sv39 {
		t.Error("k210 board must force 39-bit addressing")
	}

	plain := mustNormalize(t, Params{Arch: "riscv64"})
	if plain.Sv39 {
		t.Error("plain riscv64 must not enable 39-bit addressing by default")
	}
}

func TestNormalizeParamsRaspi3DefaultsGenericTimer(t *testing.T) {
	cfg := mustNormalize(t, Params{Arch: "aarch64"})
	if cfg.Timer != TimerGeneric {
		t.Errorf("raspi3 timer = %s, want generic", cfg.Timer)
	}

	override := mustNormalize(t, Params{Arch: "aarch64", Timer: "system"})
	if override.Timer != TimerSystem {
		t.Errorf("explicit timer = %s, want system", override.Timer)
	}
}

func TestOutputDirKeyedByArchAndMode(t *testing.T) {
	restoreBuildGlobals(t)

	debug := mustNormalize(t, Params{Arch: "riscv64"})
	release := mustNormalize(t, Params{Arch: "riscv64", Mode: "release"})
	if debug.OutputDir() == release.OutputDir() {
		t.Error("debug and release builds must not share an output directory")
	}

	again := mustNormalize(t, Params{Arch: "riscv64"})
	if debug.OutputDir() != again.OutputDir() {
		t.Error("same (arch, mode) must resolve to the same output directory")
	}
}
