package entity

import (
	"fmt"

	"github.com/gridlockgames/tictactoe-rooms/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"

	MarkCross  = "cross"
	MarkNought = "nought"

	EmptyCell = ""
	EmptySeat = ""

	RolePrimary   = "primary"
	RoleSecondary = "secondary"
	RoleHermit    = "hermit"
)

// WinningLines - the 8 fixed triples of coordinates that end the game:
// 3 columns, 3 rows and 2 diagonals of the a..c x 0..2 grid.
var WinningLines = [][3]string{
	{"a0", "a1", "a2"},
	{"b0", "b1", "b2"},
	{"c0", "c1", "c2"},
	{"a0", "b0", "c0"},
	{"a1", "b1", "c1"},
	{"a2", "b2", "c2"},
	{"a0", "b1", "c2"},
	{"a2", "b1", "c0"},
}

// Room is one game session stored as a single document in the game store.
type Room struct {
	ID          string            `json:"id"`
	Seats       Seats             `json:"seats"`
	Coordinates map[string]string `json:"coordinates"`
	LastMark    string            `json:"last_mark"`
	Status      string            `json:"status"`
	Winner      string            `json:"winner,omitempty"`
	WinningLine []string          `json:"winning_line,omitempty"`
	Draw        bool              `json:"draw,omitempty"`
	Version     int64             `json:"version"`
}

// Seats are the two fixed player slots. An empty string means the seat is free.
type Seats struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Update is a partial room update carried by the socket layer:
// freshly marked cells plus the mark that was placed.
type Update struct {
	Coordinates map[string]string `json:"coordinates"`
	LastMark    string            `json:"last_mark"`
}

// Result of a finished game: either a winner with its line, or a draw.
type Result struct {
	Winner      string
	WinningLine []string
	Draw        bool
}

func NewRoom(id string) *Room {
	return &Room{
		ID:          id,
		Coordinates: NewGrid(),
		Status:      StatusWaiting,
		Version:     1,
	}
}

// NewGrid - builds the 9-cell board with every coordinate present and empty.
func NewGrid() map[string]string {
	grid := make(map[string]string, 9)
	for _, column := range []string{"a", "b", "c"} {
		for row := 0; row < 3; row++ {
			grid[fmt.Sprintf("%s%d", column, row)] = EmptyCell
		}
	}

	return grid
}

// SeatViewer - assigns a seat to the viewer, in this fixed order: an empty
// room seats the viewer as primary; an already seated viewer keeps its seat;
// a free secondary seat is taken next; everyone else is a hermit.
// The returned bool reports whether the room was mutated.
func (that *Room) SeatViewer(viewerID string) (string, bool) {
	if that.Seats.Primary == EmptySeat && that.Seats.Secondary == EmptySeat {
		that.Seats.Primary = viewerID
		return RolePrimary, true
	}

	if that.Seats.Primary == viewerID {
		return RolePrimary, false
	}

	if that.Seats.Secondary == viewerID {
		return RoleSecondary, false
	}

	if that.Seats.Secondary == EmptySeat {
		that.Seats.Secondary = viewerID
		return RoleSecondary, true
	}

	return RoleHermit, false
}

// RoleOf - returns the seat role held by the viewer, or empty if unseated.
func (that *Room) RoleOf(viewerID string) string {
	switch viewerID {
	case EmptySeat:
		return ""
	case that.Seats.Primary:
		return RolePrimary
	case that.Seats.Secondary:
		return RoleSecondary
	default:
		return ""
	}
}

// MarkOf - the primary seat plays crosses, any other seated viewer plays
// noughts. Callers must seat a viewer first.
func (that *Room) MarkOf(viewerID string) string {
	if that.Seats.Primary == viewerID {
		return MarkCross
	}

	return MarkNought
}

// ApplyUpdate - merges the partial update into the board. Only the 9 fixed
// coordinates are accepted, and only known mark values.
func (that *Room) ApplyUpdate(update *Update) error {
	if update.LastMark != EmptyCell && !IsValidMark(update.LastMark) {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMark, update.LastMark)
	}

	for coordinate, mark := range update.Coordinates {
		if _, ok := that.Coordinates[coordinate]; !ok {
			return fmt.Errorf("%w: %q", apperror.ErrInvalidCell, coordinate)
		}

		if mark != EmptyCell && !IsValidMark(mark) {
			return fmt.Errorf("%w: %q", apperror.ErrInvalidMark, mark)
		}
	}

	for coordinate, mark := range update.Coordinates {
		that.Coordinates[coordinate] = mark
	}

	if update.LastMark != EmptyCell {
		that.LastMark = update.LastMark
	}

	return nil
}

func IsValidMark(mark string) bool {
	return mark == MarkCross || mark == MarkNought
}

// DetermineResult - checks the board against the 8 winning lines, considering
// only lines fully composed of the last placed mark. Returns a draw when the
// board is full and no such line exists, and nil while the game continues.
func (that *Room) DetermineResult() *Result {
	if that.LastMark != EmptyCell {
		for _, line := range WinningLines {
			a, b, c := that.Coordinates[line[0]], that.Coordinates[line[1]], that.Coordinates[line[2]]
			if a == that.LastMark && b == that.LastMark && c == that.LastMark {
				return &Result{
					Winner:      that.LastMark,
					WinningLine: line[:],
				}
			}
		}
	}

	for _, mark := range that.Coordinates {
		if mark == EmptyCell {
			return nil
		}
	}

	return &Result{Draw: true}
}

// RecomputeStatus - applies the finish transition when the board holds a
// result. Reports whether the room changed.
func (that *Room) RecomputeStatus() bool {
	if that.IsFinished() {
		return false
	}

	result := that.DetermineResult()
	if result == nil {
		return false
	}

	that.Winner = result.Winner
	that.WinningLine = result.WinningLine
	that.Draw = result.Draw
	that.Status = StatusFinished

	return true
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}
