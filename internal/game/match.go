package game

// ClientID identifies one live connection. IDs are unique for the
// process lifetime and never reused.
type ClientID string

// NoClient is the zero ClientID
const NoClient ClientID = ""

// Status is the lifecycle state of a match slot
type Status int

const (
	// StatusWaiting means the match was created and waits for an opponent
	StatusWaiting Status = iota
	// StatusPending means a join request awaits the owner's decision
	StatusPending
	// StatusPlaying means the game is in progress
	StatusPlaying
	// StatusRematch means the game ended and the slot is kept only so an
	// eligible player can request a follow-up match
	StatusRematch
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusPending:
		return "PENDING"
	case StatusPlaying:
		return "PLAYING"
	case StatusRematch:
		return "REMATCH"
	default:
		return "UNKNOWN"
	}
}

// Match is one occupied slot in the store. The owner created the match,
// always plays X and always moves first.
type Match struct {
	ID      int
	Status  Status
	Owner   ClientID
	Joiner  ClientID
	Pending ClientID

	Board Board
	Turn  Mark // MarkX = owner to move, MarkO = joiner to move

	// Populated once Status becomes StatusRematch
	Winner ClientID
	Loser  ClientID
	Draw   bool
}

// opponentOf returns the other participant, or NoClient if player is not
// a participant.
func (m *Match) opponentOf(player ClientID) ClientID {
	switch player {
	case m.Owner:
		return m.Joiner
	case m.Joiner:
		return m.Owner
	default:
		return NoClient
	}
}

func (m *Match) isParticipant(player ClientID) bool {
	return player == m.Owner || (m.Joiner != NoClient && player == m.Joiner)
}

func (m *Match) turnLabel() string {
	if m.Status != StatusPlaying {
		return "-"
	}
	if m.Turn == MarkX {
		return "X (owner)"
	}
	return "O (joiner)"
}

// renderBoard snapshots the board block for this match
func (m *Match) renderBoard() string {
	return m.Board.render(m.ID, m.turnLabel())
}

// Summary is one LIST entry
type Summary struct {
	ID     int
	Owner  string
	Status Status
}
