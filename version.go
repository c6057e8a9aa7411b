package deskvm

import "deskvm.dev/deskvm/gen"

var (
	Version = gen.Version{
		Name:    "deskvm",
		Release: "0.3.0",
		License: gen.LicenseMIT,
	}
)
