package shura

import (
	"fmt"
	"strconv"
	"strings"
)

// LaunchOptions are per-invocation launch tweaks on top of the BuildConfig.
type LaunchOptions struct {
	Trace string // qemu -d selector, passed through verbatim
	GUI   bool   // GUI launch variant: append display adapter + pointer
	GDB   bool   // freeze the CPU and open the gdb stub
}

// LaunchSpec is the fully resolved emulator invocation, grouped into ordered
// argument segments. Args flattens them in a fixed order so repeated
// compositions of the same configuration are identical.
type LaunchSpec struct {
	Binary  string
	Machine []string
	Storage []string
	Network []string
	Debug   []string
}

// Args returns the flattened argument list: machine/device, storage, network,
// then debug.
func (s *LaunchSpec) Args() []string {
	var args []string
	args = append(args, s.Machine...)
	args = append(args, s.Storage...)
	args = append(args, s.Network...)
	args = append(args, s.Debug...)
	return args
}

func (s *LaunchSpec) String() string {
	return s.Binary + " " + strings.Join(s.Args(), " ")
}

// ComposeLaunchSpec merges the architecture-specific device wiring with the
// user's configuration. Pure: no host inspection, no side effects.
func ComposeLaunchSpec(cfg BuildConfig, artifact string, opt LaunchOptions) (*LaunchSpec, error) {
	spec := &LaunchSpec{Binary: "qemu-system-" + string(cfg.Arch)}

	switch cfg.Arch {
	case ArchX86_64:
		spec.Machine = append(spec.Machine,
			"-m", "4G",
			"-smp", strconv.Itoa(cfg.SMP),
			"-serial", "mon:stdio",
			// VM-exit based test-completion signal
			"-device", "isa-debug-exit,iobase=0xf4,iosize=0x04",
		)
		spec.Storage = append(spec.Storage,
			"-drive", "format=raw,file="+artifact,
			"-drive", "format=raw,file="+UserImg,
		)
		if cfg.Passthrough != "" {
			// Physical device by bus address; vfio needs hardware virtualization.
			spec.Network = append(spec.Network,
				"-enable-kvm",
				"-device", "vfio-pci,host="+cfg.Passthrough,
			)
		} else {
			spec.Network = append(spec.Network,
				"-netdev", "user,id=net0",
				"-device", "e1000e,netdev=net0",
			)
		}
		if opt.GUI {
			spec.Machine = append(spec.Machine,
				"-device", "virtio-gpu-pci",
				"-device", "virtio-tablet-pci",
			)
		}

	case ArchRiscv32, ArchRiscv64:
		spec.Machine = append(spec.Machine,
			"-machine", "virt",
			"-smp", strconv.Itoa(cfg.SMP),
			"-kernel", artifact,
		)
		spec.Storage = append(spec.Storage,
			"-drive", "file="+UserImg+",format=raw,id=userfs",
			"-device", "virtio-blk-device,drive=userfs",
		)
		if cfg.Net {
			spec.Network = append(spec.Network,
				"-netdev", "user,id=net0",
				"-device", "virtio-net-device,netdev=net0",
			)
		}
		if opt.GUI {
			spec.Machine = append(spec.Machine,
				"-device", "virtio-gpu-device",
				"-device", "virtio-tablet-device",
			)
		}

	case ArchAarch64:
		// Serial order is load-bearing: the board routes the first UART to
		// nothing and the second to the console.
		spec.Machine = append(spec.Machine,
			"-machine", "raspi3b",
			"-serial", "null",
			"-serial", "mon:stdio",
			"-kernel", artifact,
		)

	default:
		return nil, fmt.Errorf("no emulator wiring for architecture %q", cfg.Arch)
	}

	// Kernel command line only applies where the kernel is loaded directly.
	if cfg.DirectKernelLoad() && cfg.InitPath != "" {
		spec.Machine = append(spec.Machine, "-append", "init="+cfg.InitPath)
	}

	if !cfg.Graphics && !opt.GUI {
		spec.Machine = append(spec.Machine, "-nographic")
	}

	if opt.Trace != "" {
		spec.Debug = append(spec.Debug, "-d", opt.Trace)
	}
	if opt.GDB {
		spec.Debug = append(spec.Debug, "-s", "-S")
	}

	return spec, nil
}
