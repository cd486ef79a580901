package shura

import (
	"sync/atomic"

	"github.com/gookit/color"
)

// GLOBAL STATE
// A value of 1 marks a critical phase (install in progress), 0 is the default.
var isCriticalAtomic atomic.Int32

// Global variables
var (
	KernelDir     string
	PkDir         string
	BootloaderDir string
	UserDir       string
	BuildRoot     string
	UserImg       string
	SDCardMount   string
	Debug         bool
	Verbose       bool
	ConfigFile    = "shura.conf"
	version       = "dev"     // overridden at build time
	buildDate     = "unknown" // overridden at build time
	// Global executors (declared, to be assigned in Main)
	UserExec *Executor
	RootExec *Executor
)

// color helpers
var (
	colInfo    = color.Info
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
