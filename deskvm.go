package deskvm

import (
	"deskvm.dev/deskvm/gen"
	"deskvm.dev/deskvm/vm"
)

// Start creates a VM reporting the version of this module.
func Start(options vm.Options) (gen.VM, error) {
	if options.Version.Name == "" {
		options.Version = Version
	}
	return vm.Start(options)
}
