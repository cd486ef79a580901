package shura

import (
	"flag"
	"fmt"
	"os/exec"
	"time"
)

// Pipeline is one resolved invocation: canonical config, derived feature set,
// selected toolchain and composed boot chain. Everything in it is computed
// up front; only Build and Launch touch the host.
type Pipeline struct {
	Config    BuildConfig
	Features  []string
	Toolchain Toolchain
	Chain     *BootChain
}

// PreparePipeline runs the pure half of the orchestration: normalize the
// parameters, resolve features, select the toolchain and compose the boot
// chain. Configuration errors surface here, before any external process runs.
func PreparePipeline(p Params) (*Pipeline, error) {
	cfg, err := NormalizeParams(p)
	if err != nil {
		return nil, err
	}
	feats := ResolveFeatures(cfg)
	tc, err := HostToolchain(cfg.Arch)
	if err != nil {
		return nil, err
	}
	chain, err := ComposeBootChain(cfg, feats, tc)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Config: cfg, Features: feats, Toolchain: tc, Chain: chain}, nil
}

// Build runs the boot chain stages in order. The first failing stage aborts
// the rest and is reported with its name; nothing is retried.
func (p *Pipeline) Build(x *Executor) error {
	start := time.Now()
	stageBanner("Building %s/%s kernel (features: %v)", p.Config.Arch, p.Config.Mode, p.Features)

	for _, st := range p.Chain.Stages {
		stageBanner("Stage %s", st.Name)
		if err := st.Run(x); err != nil {
			return fmt.Errorf("stage %s: %w", st.Name, err)
		}
	}

	if !fileExists(p.Chain.Artifact.Path) {
		return fmt.Errorf("stage %s reported success but produced no artifact at %s",
			p.Chain.Artifact.Stage, p.Chain.Artifact.Path)
	}

	// Record artifact checksums; failure to do so never masks a good build.
	if err := writeManifest(p.Config.OutputDir()); err != nil {
		cPrintf(colWarn, "warning: could not write artifact manifest: %v\n", err)
	}

	stageBanner("Built %s in %s", p.Chain.Artifact.Path, time.Since(start).Round(time.Millisecond))
	return nil
}

// ensureUserImg builds the user filesystem image through the external image
// builder when it is missing. aarch64 boots without a disk, so it skips this.
func (p *Pipeline) ensureUserImg(x *Executor) error {
	if p.Config.Arch == ArchAarch64 {
		return nil
	}
	if fileExists(UserImg) {
		return nil
	}
	if !dirExists(UserDir) {
		return fmt.Errorf("user image %s missing and user project not found at %s", UserImg, UserDir)
	}
	stageBanner("Building user filesystem image")
	cmd := exec.Command("make", "-C", UserDir, "ARCH="+string(p.Config.Arch))
	if err := x.Run(cmd); err != nil {
		return fmt.Errorf("user image build failed: %w", err)
	}
	return nil
}

// Launch boots the artifact under the emulator and blocks until it exits.
func (p *Pipeline) Launch(x *Executor, opt LaunchOptions) error {
	if p.Config.Passthrough != "" {
		if err := checkKVM(); err != nil {
			return err
		}
	}
	if err := p.ensureUserImg(x); err != nil {
		return err
	}

	spec, err := ComposeLaunchSpec(p.Config, p.Chain.Artifact.Path, opt)
	if err != nil {
		return err
	}

	stageBanner("Launching %s", spec.Binary)
	debugf("%s\n", spec.String())

	qemu := &Executor{Context: x.Context, Interactive: true}
	return qemu.Run(exec.Command(spec.Binary, spec.Args()...))
}

// bindBuildFlags registers the shared build/launch flags on a FlagSet and
// returns the Params they fill.
func bindBuildFlags(fs *flag.FlagSet, cfg *Config) *Params {
	p := &Params{}
	fs.StringVar(&p.Arch, "arch", cfg.getDefault("SHURA_ARCH", ""), "target architecture (x86_64, riscv32, riscv64, aarch64)")
	fs.StringVar(&p.Board, "board", cfg.getDefault("SHURA_BOARD", ""), "board profile (none, k210, raspi3)")
	fs.StringVar(&p.Mode, "mode", cfg.getDefault("SHURA_MODE", ""), "build mode (debug, release)")
	fs.StringVar(&p.Timer, "timer", "", "timer variant (system, generic)")
	fs.StringVar(&p.LogLevel, "log", cfg.getDefault("SHURA_LOG", ""), "kernel log level")
	fs.StringVar(&p.InitPath, "init", "", "init program path passed on the kernel command line")
	fs.StringVar(&p.Passthrough, "vfio", "", "PCI device to pass through (bus address, e.g. 0000:00:00.1)")
	fs.IntVar(&p.SMP, "smp", 0, "number of SMP cores")
	fs.BoolVar(&p.Graphics, "graphics", false, "enable graphical output")
	fs.BoolVar(&p.Net, "net", false, "attach a network device")
	fs.BoolVar(&p.Sv39, "sv39", false, "use 39-bit virtual addressing (riscv64)")
	fs.BoolFunc("release", "shorthand for -mode release", func(string) error {
		p.Mode = "release"
		return nil
	})
	fs.Func("fsimg", "user filesystem image path", func(v string) error {
		UserImg = v
		return nil
	})
	return p
}

func handleBuildCommand(args []string, cfg *Config) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	p := bindBuildFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pipe, err := PreparePipeline(*p)
	if err != nil {
		return err
	}
	return pipe.Build(UserExec)
}

func handleRunCommand(args []string, cfg *Config, build, gui bool) error {
	name := "run"
	if !build {
		name = "justrun"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	p := bindBuildFlags(fs, cfg)
	trace := fs.String("d", "", "qemu trace selector, passed through verbatim")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if gui {
		p.Graphics = true
	}
	pipe, err := PreparePipeline(*p)
	if err != nil {
		return err
	}
	if build {
		if err := pipe.Build(UserExec); err != nil {
			return err
		}
	} else if !fileExists(pipe.Chain.Artifact.Path) {
		return fmt.Errorf("no bootable artifact at %s, run 'shura build' first", pipe.Chain.Artifact.Path)
	}
	return pipe.Launch(UserExec, LaunchOptions{Trace: *trace, GUI: gui})
}
