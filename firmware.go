package qick

import (
	"os"

	"github.com/qick-go/qick/internal/board"
)

// DefaultFirmwareDir is where the bitfiles are installed on a board.
const DefaultFirmwareDir = "/opt/qick/firmware"

var (
	ErrUnknownBoard = board.ErrUnknownBoard
	ErrNoBoard      = board.ErrNoBoard
)

// BoardError reports a board name with no firmware.
type BoardError = board.Error

// Boards returns the board models with shipped firmware.
func Boards() []string {
	return board.Names()
}

// BitfilePath returns the absolute path of the firmware for boardName in dir.
func BitfilePath(boardName, dir string) (string, error) {
	return board.Path(boardName, dir)
}

// BitfilePathFromEnv is BitfilePath with the board named by the BOARD
// environment variable.
func BitfilePathFromEnv(dir string) (string, error) {
	return board.Path(os.Getenv(board.Env), dir)
}
