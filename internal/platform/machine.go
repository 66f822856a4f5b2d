package platform

import "runtime"

var goarchMachines = map[string]string{
	"arm64": "aarch64",
	"arm":   "armv7l",
	"amd64": "x86_64",
	"386":   "i686",
}

func goarchMachine() string {
	if m, ok := goarchMachines[runtime.GOARCH]; ok {
		return m
	}
	return runtime.GOARCH
}
