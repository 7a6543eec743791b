package game

import (
	"errors"
	"sort"
	"sync"
)

// Store errors
var (
	ErrMatchesFull        = errors.New("match table full")
	ErrMatchNotFound      = errors.New("match not found")
	ErrNotJoinable        = errors.New("match not joinable")
	ErrOwnMatch           = errors.New("cannot join own match")
	ErrNotOwner           = errors.New("not the match owner")
	ErrNoPending          = errors.New("no pending join request")
	ErrMatchNotPlaying    = errors.New("match not in progress")
	ErrNotPlayer          = errors.New("not a player of this match")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrBadMove            = errors.New("invalid move")
	ErrNoOpponent         = errors.New("no opponent")
	ErrRematchUnavailable = errors.New("no rematch available")
	ErrLoserRematch       = errors.New("loser cannot request a rematch")
)

// Outcome classifies an accepted move
type Outcome int

const (
	Continue Outcome = iota
	Win
	Draw
)

// MoveResult carries everything the caller needs to notify both players.
// Board is rendered atomically with the mutation.
type MoveResult struct {
	Outcome    Outcome
	Board      string
	Opponent   ClientID
	WinnerName string
}

// ResignResult reports a completed resignation
type ResignResult struct {
	Opponent   ClientID
	Board      string
	WinnerName string
}

// NoticeKind classifies a disconnect side effect
type NoticeKind int

const (
	// NoticeOpponentWin tells the surviving player they won because the
	// opponent disconnected mid-game
	NoticeOpponentWin NoticeKind = iota
	// NoticeOwnerLeft tells a pending joiner the match owner disconnected
	NoticeOwnerLeft
	// NoticeRematchGone tells the other player of a finished match that
	// no rematch will come
	NoticeRematchGone
)

// Notice is one (recipient, message) side effect computed under the
// store lock and dispatched by the caller after release.
type Notice struct {
	To      ClientID
	Kind    NoticeKind
	MatchID int
}

// Store is the fixed-capacity match table. One mutex guards the whole
// table; every transition is atomic from callers' viewpoint. The
// registry is used only for display-name lookups, acquiring its lock
// strictly after this one.
type Store struct {
	mu       sync.Mutex
	matches  map[int]*Match
	capacity int
	nextID   int
	registry *Registry
}

// NewStore creates a store holding at most capacity matches
func NewStore(capacity int, registry *Registry) *Store {
	return &Store{
		matches:  make(map[int]*Match),
		capacity: capacity,
		nextID:   1,
		registry: registry,
	}
}

// Create allocates a new waiting match owned by owner. Match ids are
// assigned monotonically and never reused; 0 is never issued.
func (s *Store) Create(owner ClientID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(owner)
}

func (s *Store) createLocked(owner ClientID) (int, error) {
	if len(s.matches) >= s.capacity {
		return 0, ErrMatchesFull
	}
	m := &Match{
		ID:     s.nextID,
		Status: StatusWaiting,
		Owner:  owner,
		Turn:   MarkX,
		Board:  NewBoard(),
	}
	s.nextID++
	s.matches[m.ID] = m
	return m.ID, nil
}

// List summarizes every occupied slot in id order
func (s *Store) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.matches))
	for _, m := range s.matches {
		owner := "??"
		// Lock order: store -> registry
		if name, ok := s.registry.Name(m.Owner); ok {
			owner = name
		}
		out = append(out, Summary{ID: m.ID, Owner: owner, Status: m.Status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RequestJoin registers joiner's request on a waiting match and returns
// the owner to notify. A match holds at most one outstanding request.
func (s *Store) RequestJoin(matchID int, joiner ClientID) (ClientID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return NoClient, ErrMatchNotFound
	}
	if m.Owner == joiner {
		return NoClient, ErrOwnMatch
	}
	if m.Status != StatusWaiting {
		return NoClient, ErrNotJoinable
	}

	m.Status = StatusPending
	m.Pending = joiner
	return m.Owner, nil
}

// Accept promotes the pending joiner and starts the game. The owner
// plays X and moves first.
func (s *Store) Accept(matchID int, owner ClientID) (ClientID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return NoClient, ErrMatchNotFound
	}
	if m.Owner != owner {
		return NoClient, ErrNotOwner
	}
	if m.Status != StatusPending || m.Pending == NoClient {
		return NoClient, ErrNoPending
	}

	joiner := m.Pending
	m.Joiner = joiner
	m.Pending = NoClient
	m.Status = StatusPlaying
	m.Turn = MarkX
	m.Board.Clear()
	return joiner, nil
}

// Reject refuses the pending join request and returns the match to the
// lobby. Returns the rejected client to notify.
func (s *Store) Reject(matchID int, owner ClientID) (ClientID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return NoClient, ErrMatchNotFound
	}
	if m.Owner != owner {
		return NoClient, ErrNotOwner
	}
	if m.Status != StatusPending || m.Pending == NoClient {
		return NoClient, ErrNoPending
	}

	rejected := m.Pending
	m.Pending = NoClient
	m.Status = StatusWaiting
	return rejected, nil
}

// Move places player's mark at (r, c), detecting win and draw. On game
// end the match moves to StatusRematch with winner/loser/draw recorded;
// otherwise the turn flips.
func (s *Store) Move(matchID int, player ClientID, r, c int) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res MoveResult

	m, ok := s.matches[matchID]
	if !ok {
		return res, ErrMatchNotFound
	}
	if m.Status != StatusPlaying {
		return res, ErrMatchNotPlaying
	}
	if !m.isParticipant(player) {
		return res, ErrNotPlayer
	}

	mark := MarkO
	if player == m.Owner {
		mark = MarkX
	}
	if m.Turn != mark {
		return res, ErrNotYourTurn
	}
	if !m.Board.Place(r, c, mark) {
		return res, ErrBadMove
	}

	res.Opponent = m.opponentOf(player)

	switch {
	case m.Board.HasWinner(mark):
		m.Status = StatusRematch
		m.Winner = player
		m.Loser = res.Opponent
		m.Draw = false
		res.Outcome = Win
		// Lock order: store -> registry
		if name, ok := s.registry.Name(player); ok {
			res.WinnerName = name
		}
	case m.Board.Full():
		m.Status = StatusRematch
		m.Winner = NoClient
		m.Loser = NoClient
		m.Draw = true
		res.Outcome = Draw
	default:
		if m.Turn == MarkX {
			m.Turn = MarkO
		} else {
			m.Turn = MarkX
		}
		res.Outcome = Continue
	}

	res.Board = m.renderBoard()
	return res, nil
}

// BoardOf renders the current board of a match
func (s *Store) BoardOf(matchID int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return "", ErrMatchNotFound
	}
	return m.renderBoard(), nil
}

// Resign ends the game with player as the loser
func (s *Store) Resign(matchID int, player ClientID) (ResignResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res ResignResult

	m, ok := s.matches[matchID]
	if !ok {
		return res, ErrMatchNotFound
	}
	if m.Status != StatusPlaying {
		return res, ErrMatchNotPlaying
	}
	if !m.isParticipant(player) {
		return res, ErrNotPlayer
	}

	opp := m.opponentOf(player)
	if opp == NoClient {
		return res, ErrNoOpponent
	}

	m.Status = StatusRematch
	m.Winner = opp
	m.Loser = player
	m.Draw = false

	res.Opponent = opp
	if name, ok := s.registry.Name(opp); ok {
		res.WinnerName = name
	}
	res.Board = m.renderBoard()
	return res, nil
}

// FindRematch locates the at-most-one finished match in which player
// took part and which still awaits a rematch decision.
func (s *Store) FindRematch(player ClientID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if m.Status == StatusRematch && m.isParticipant(player) {
			return m.ID, true
		}
	}
	return 0, false
}

// Rematch starts a follow-up match. Only the winner, or either player
// after a draw, may request it; the loser of a decisive game must use
// CREATE or JOIN instead. The new waiting match is allocated and the old
// slot freed in one critical section, with the requester as owner.
// Returns the new match id and the old opponent to notify.
func (s *Store) Rematch(matchID int, player ClientID) (int, ClientID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok || m.Status != StatusRematch {
		return 0, NoClient, ErrRematchUnavailable
	}
	if !m.isParticipant(player) {
		return 0, NoClient, ErrNotPlayer
	}
	if !m.Draw && m.Loser == player {
		return 0, NoClient, ErrLoserRematch
	}

	opponent := m.opponentOf(player)

	// The old slot does not count against capacity for its replacement.
	delete(s.matches, matchID)
	newID, err := s.createLocked(player)
	if err != nil {
		return 0, NoClient, err
	}
	return newID, opponent, nil
}

// OnDisconnect cleans up every slot referencing the client. One call can
// produce several notices, since a client may at once own one match and
// be the pending joiner of another. Notices must be dispatched by the
// caller after this returns.
func (s *Store) OnDisconnect(player ClientID) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notices []Notice

	for id, m := range s.matches {
		switch {
		case m.Status == StatusPlaying && m.isParticipant(player):
			if opp := m.opponentOf(player); opp != NoClient {
				notices = append(notices, Notice{To: opp, Kind: NoticeOpponentWin, MatchID: id})
			}
			delete(s.matches, id)

		case m.Status == StatusRematch && m.isParticipant(player):
			if opp := m.opponentOf(player); opp != NoClient {
				notices = append(notices, Notice{To: opp, Kind: NoticeRematchGone, MatchID: id})
			}
			delete(s.matches, id)

		case (m.Status == StatusWaiting || m.Status == StatusPending) && m.Owner == player:
			if m.Status == StatusPending && m.Pending != NoClient {
				notices = append(notices, Notice{To: m.Pending, Kind: NoticeOwnerLeft, MatchID: id})
			}
			delete(s.matches, id)

		case m.Status == StatusPending && m.Pending == player:
			m.Pending = NoClient
			m.Status = StatusWaiting
		}
	}
	return notices
}
