package game

import "fmt"

// Mark is one cell value on the board
type Mark byte

const (
	Empty Mark = ' '
	MarkX Mark = 'X'
	MarkO Mark = 'O'
)

// Board is a 3x3 tic-tac-toe grid
type Board [3][3]Mark

// NewBoard returns an empty board
func NewBoard() Board {
	var b Board
	b.Clear()
	return b
}

// Clear resets every cell to Empty
func (b *Board) Clear() {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			b[r][c] = Empty
		}
	}
}

// Place puts mark at (r, c). It fails if the cell is out of range or
// already occupied.
func (b *Board) Place(r, c int, mark Mark) bool {
	if r < 0 || r > 2 || c < 0 || c > 2 {
		return false
	}
	if b[r][c] != Empty {
		return false
	}
	b[r][c] = mark
	return true
}

// HasWinner reports whether mark holds a full row, column or diagonal
func (b *Board) HasWinner(mark Mark) bool {
	for i := 0; i < 3; i++ {
		if b[i][0] == mark && b[i][1] == mark && b[i][2] == mark {
			return true
		}
		if b[0][i] == mark && b[1][i] == mark && b[2][i] == mark {
			return true
		}
	}
	if b[0][0] == mark && b[1][1] == mark && b[2][2] == mark {
		return true
	}
	if b[0][2] == mark && b[1][1] == mark && b[2][0] == mark {
		return true
	}
	return false
}

// Full reports whether no empty cell remains
func (b *Board) Full() bool {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if b[r][c] == Empty {
				return false
			}
		}
	}
	return true
}

// render draws the board block sent to clients, including whose turn it
// is while the match is in progress.
func (b *Board) render(matchID int, turnLabel string) string {
	return fmt.Sprintf(
		"Board (match %d):\n"+
			" %c | %c | %c \n"+
			"-----------\n"+
			" %c | %c | %c \n"+
			"-----------\n"+
			" %c | %c | %c \n"+
			"Turn: %s\n",
		matchID,
		b[0][0], b[0][1], b[0][2],
		b[1][0], b[1][1], b[1][2],
		b[2][0], b[2][1], b[2][2],
		turnLabel,
	)
}
