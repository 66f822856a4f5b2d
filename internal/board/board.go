// Package board maps board models to the firmware shipped for them.
package board

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Env is the environment variable naming the board model.
const Env = "BOARD"

var (
	// ErrUnknownBoard is returned for a board name with no firmware entry.
	ErrUnknownBoard = errors.New("unknown board")
	// ErrNoBoard is returned when no board name was supplied.
	ErrNoBoard = errors.New("board not set")
)

// Error reports a board lookup failure.
type Error struct {
	Board string
	Err   error
}

func (e *Error) Error() string {
	if e.Board == "" {
		return fmt.Sprintf("board lookup: %v (set %s to one of %s)", e.Err, Env, strings.Join(Names(), ", "))
	}
	return fmt.Sprintf("board %q: %v (known: %s)", e.Board, e.Err, strings.Join(Names(), ", "))
}

func (e *Error) Unwrap() error {
	return e.Err
}

var firmware = map[string]string{
	"ZCU216":   "qick_216.bit",
	"ZCU111":   "qick_111.bit",
	"RFSoC4x2": "qick_4x2.bit",
}

// Names returns the known board names, sorted.
func Names() []string {
	names := make([]string, 0, len(firmware))
	for name := range firmware {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Firmware returns the bitfile name for board.
func Firmware(board string) (string, error) {
	if board == "" {
		return "", &Error{Err: ErrNoBoard}
	}
	name, ok := firmware[board]
	if !ok {
		return "", &Error{Board: board, Err: ErrUnknownBoard}
	}
	return name, nil
}

// Path returns the absolute bitfile path for board inside dir.
func Path(board, dir string) (string, error) {
	name, err := Firmware(board)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("resolve firmware path: %w", err)
	}
	return abs, nil
}

// DescriptorPath returns the board descriptor that accompanies a bitfile.
func DescriptorPath(bitfile string) string {
	return strings.TrimSuffix(bitfile, filepath.Ext(bitfile)) + ".yaml"
}
