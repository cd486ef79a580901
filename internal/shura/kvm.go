package shura

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// checkKVM verifies that /dev/kvm exists and is usable by the current user.
// PCI passthrough runs the guest under vfio, which requires hardware
// virtualization; failing here is a configuration error, caught before the
// emulator starts.
func checkKVM() error {
	if err := unix.Access("/dev/kvm", unix.R_OK|unix.W_OK); err != nil {
		return fmt.Errorf("PCI passthrough requires KVM, but /dev/kvm is not accessible: %w", err)
	}
	return nil
}
