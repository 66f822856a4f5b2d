//go:build !linux

package platform

// Machine returns a uname-style machine identifier derived from GOARCH.
func Machine() string {
	return goarchMachine()
}
