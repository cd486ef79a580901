package shura

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Arch is the target instruction set the kernel is compiled for.
type Arch string

const (
	ArchX86_64  Arch = "x86_64"
	ArchRiscv32 Arch = "riscv32"
	ArchRiscv64 Arch = "riscv64"
	ArchAarch64 Arch = "aarch64"
)

// Board is a hardware profile layered on an architecture. It affects feature
// flags and emulator device wiring.
type Board string

const (
	BoardNone   Board = "none"
	BoardK210   Board = "k210"
	BoardRaspi3 Board = "raspi3"
)

// Mode selects the optimization profile of the kernel build.
type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

// Timer selects the timer source the kernel is compiled against.
type Timer string

const (
	TimerSystem  Timer = "system"
	TimerGeneric Timer = "generic"
)

// Params carries the raw user inputs (flags, config file, environment) before
// normalization. Zero values mean "use the default".
type Params struct {
	Arch        string
	Board       string
	Mode        string
	Timer       string
	LogLevel    string
	InitPath    string
	Passthrough string
	SMP         int
	Graphics    bool
	Net         bool
	Sv39        bool
}

// BuildConfig is the canonical, validated configuration record. It is created
// once per invocation and never mutated afterwards.
type BuildConfig struct {
	Arch        Arch
	Board       Board
	Mode        Mode
	Timer       Timer
	LogLevel    string
	InitPath    string
	Passthrough string
	SMP         int
	Graphics    bool
	Net         bool
	Sv39        bool
}

// recognized architecture/board pairings; everything else is rejected rather
// than silently defaulted.
var supportedBoards = map[Arch][]Board{
	ArchX86_64:  {BoardNone},
	ArchRiscv32: {BoardNone},
	ArchRiscv64: {BoardNone, BoardK210},
	ArchAarch64: {BoardRaspi3},
}

// NormalizeParams validates the raw inputs and fills in defaults, producing
// the immutable BuildConfig the rest of the pipeline operates on.
func NormalizeParams(p Params) (BuildConfig, error) {
	var cfg BuildConfig

	arch := Arch(strings.ToLower(p.Arch))
	if arch == "" {
		arch = ArchRiscv64
	}
	boards, ok := supportedBoards[arch]
	if !ok {
		return cfg, fmt.Errorf("unsupported architecture %q (expected one of x86_64, riscv32, riscv64, aarch64)", p.Arch)
	}
	cfg.Arch = arch

	board := Board(strings.ToLower(p.Board))
	if board == "" {
		board = BoardNone
	}
	if arch == ArchAarch64 {
		// aarch64 only targets the raspi3 profile; "none" resolves to it.
		if board != BoardNone && board != BoardRaspi3 {
			return cfg, fmt.Errorf("unsupported board %q for architecture %s", p.Board, arch)
		}
		board = BoardRaspi3
	} else {
		found := false
		for _, b := range boards {
			if b == board {
				found = true
				break
			}
		}
		if !found {
			return cfg, fmt.Errorf("unsupported board %q for architecture %s", p.Board, arch)
		}
	}
	cfg.Board = board

	switch Mode(strings.ToLower(p.Mode)) {
	case "", ModeDebug:
		cfg.Mode = ModeDebug
	case ModeRelease:
		cfg.Mode = ModeRelease
	default:
		return cfg, fmt.Errorf("unknown build mode %q (expected debug or release)", p.Mode)
	}

	switch Timer(strings.ToLower(p.Timer)) {
	case TimerSystem, TimerGeneric:
		cfg.Timer = Timer(strings.ToLower(p.Timer))
	case "":
		// raspi3 ships a generic timer; everything else uses the system one.
		if board == BoardRaspi3 {
			cfg.Timer = TimerGeneric
		} else {
			cfg.Timer = TimerSystem
		}
	default:
		return cfg, fmt.Errorf("unknown timer variant %q (expected system or generic)", p.Timer)
	}

	cfg.SMP = p.SMP
	if cfg.SMP <= 0 {
		cfg.SMP = 4
	}

	cfg.LogLevel = p.LogLevel
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}

	cfg.InitPath = p.InitPath
	cfg.Passthrough = p.Passthrough
	cfg.Graphics = p.Graphics
	cfg.Net = p.Net

	// The k210 MMU only implements 39-bit addressing, so the flag is forced
	// for that board regardless of the user's choice.
	cfg.Sv39 = p.Sv39 || board == BoardK210

	return cfg, nil
}

// OutputDir is the artifact directory for this configuration. Artifacts are
// keyed by (architecture, mode) only; a rebuild overwrites in place.
func (c BuildConfig) OutputDir() string {
	return filepath.Join(BuildRoot, string(c.Arch), string(c.Mode))
}

// DirectKernelLoad reports whether the emulator boots this architecture by
// loading the kernel image directly instead of from a disk image.
func (c BuildConfig) DirectKernelLoad() bool {
	return c.Arch != ArchX86_64
}
