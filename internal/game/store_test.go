package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopSend(string) error { return nil }

func newTestStore(t *testing.T, capacity int, players ...string) (*Store, *Registry) {
	t.Helper()
	reg := NewRegistry(32)
	for _, p := range players {
		require.NoError(t, reg.Add(ClientID(p), noopSend))
		require.NoError(t, reg.Login(ClientID(p), p))
	}
	return NewStore(capacity, reg), reg
}

func startedMatch(t *testing.T, s *Store, owner, joiner ClientID) int {
	t.Helper()
	id, err := s.Create(owner)
	require.NoError(t, err)
	_, err = s.RequestJoin(id, joiner)
	require.NoError(t, err)
	_, err = s.Accept(id, owner)
	require.NoError(t, err)
	return id
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice")

	id1, err := s.Create("alice")
	require.NoError(t, err)
	id2, err := s.Create("alice")
	require.NoError(t, err)

	assert.Equal(t, 1, id1)
	assert.Equal(t, 2, id2)
}

func TestCreateFailsWhenFull(t *testing.T) {
	s, _ := newTestStore(t, 2, "alice")

	_, err := s.Create("alice")
	require.NoError(t, err)
	_, err = s.Create("alice")
	require.NoError(t, err)

	_, err = s.Create("alice")
	assert.ErrorIs(t, err, ErrMatchesFull)
}

func TestJoinFlow(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice", "bob", "carol")

	id, err := s.Create("alice")
	require.NoError(t, err)

	t.Run("owner cannot join own match", func(t *testing.T) {
		_, err := s.RequestJoin(id, "alice")
		assert.ErrorIs(t, err, ErrOwnMatch)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.RequestJoin(99, "bob")
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("request moves match to pending", func(t *testing.T) {
		owner, err := s.RequestJoin(id, "bob")
		require.NoError(t, err)
		assert.Equal(t, ClientID("alice"), owner)
	})

	t.Run("pending match rejects a second request", func(t *testing.T) {
		_, err := s.RequestJoin(id, "carol")
		assert.ErrorIs(t, err, ErrNotJoinable)
	})

	t.Run("only the owner may accept", func(t *testing.T) {
		_, err := s.Accept(id, "bob")
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("reject returns the match to waiting", func(t *testing.T) {
		rejected, err := s.Reject(id, "alice")
		require.NoError(t, err)
		assert.Equal(t, ClientID("bob"), rejected)

		_, err = s.Reject(id, "alice")
		assert.ErrorIs(t, err, ErrNoPending)

		// Joinable again
		_, err = s.RequestJoin(id, "carol")
		require.NoError(t, err)
	})

	t.Run("accept starts the game", func(t *testing.T) {
		joiner, err := s.Accept(id, "alice")
		require.NoError(t, err)
		assert.Equal(t, ClientID("carol"), joiner)

		_, err = s.Accept(id, "alice")
		assert.ErrorIs(t, err, ErrNoPending)
	})
}

func TestAcceptRequiresPending(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice")

	id, err := s.Create("alice")
	require.NoError(t, err)

	_, err = s.Accept(id, "alice")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestMoveValidation(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice", "bob", "eve")
	id := startedMatch(t, s, "alice", "bob")

	t.Run("unknown match", func(t *testing.T) {
		_, err := s.Move(42, "alice", 0, 0)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("outsider cannot move", func(t *testing.T) {
		_, err := s.Move(id, "eve", 0, 0)
		assert.ErrorIs(t, err, ErrNotPlayer)
	})

	t.Run("joiner cannot move first", func(t *testing.T) {
		_, err := s.Move(id, "bob", 0, 0)
		assert.ErrorIs(t, err, ErrNotYourTurn)
	})

	t.Run("cell out of range", func(t *testing.T) {
		_, err := s.Move(id, "alice", 3, 0)
		assert.ErrorIs(t, err, ErrBadMove)
		_, err = s.Move(id, "alice", 0, -1)
		assert.ErrorIs(t, err, ErrBadMove)
	})

	t.Run("accepted move flips the turn", func(t *testing.T) {
		res, err := s.Move(id, "alice", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, Continue, res.Outcome)
		assert.Equal(t, ClientID("bob"), res.Opponent)
		assert.Contains(t, res.Board, "Turn: O (joiner)")

		_, err = s.Move(id, "alice", 0, 0)
		assert.ErrorIs(t, err, ErrNotYourTurn)
	})

	t.Run("occupied cell", func(t *testing.T) {
		_, err := s.Move(id, "bob", 1, 1)
		assert.ErrorIs(t, err, ErrBadMove)
	})

	t.Run("waiting match is not playable", func(t *testing.T) {
		lobbyID, err := s.Create("eve")
		require.NoError(t, err)
		_, err = s.Move(lobbyID, "eve", 0, 0)
		assert.ErrorIs(t, err, ErrMatchNotPlaying)
	})
}

// The forced-win script: X takes the whole top row while O answers in
// the middle row.
func TestForcedWinScenario(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice", "bob")
	id := startedMatch(t, s, "alice", "bob")

	moves := []struct {
		player  ClientID
		r, c    int
		outcome Outcome
	}{
		{"alice", 0, 0, Continue},
		{"bob", 1, 0, Continue},
		{"alice", 0, 1, Continue},
		{"bob", 1, 1, Continue},
		{"alice", 0, 2, Win},
	}

	var last MoveResult
	for _, mv := range moves {
		res, err := s.Move(id, mv.player, mv.r, mv.c)
		require.NoError(t, err)
		require.Equal(t, mv.outcome, res.Outcome, "move (%d,%d)", mv.r, mv.c)
		last = res
	}

	assert.Equal(t, "alice", last.WinnerName)
	assert.Equal(t, ClientID("bob"), last.Opponent)

	// The finished match is inert for further moves but findable for a
	// rematch.
	_, err := s.Move(id, "bob", 2, 2)
	assert.ErrorIs(t, err, ErrMatchNotPlaying)

	found, ok := s.FindRematch("alice")
	require.True(t, ok)
	assert.Equal(t, id, found)
	found, ok = s.FindRematch("bob")
	require.True(t, ok)
	assert.Equal(t, id, found)
}

func TestDrawScenario(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice", "bob")
	id := startedMatch(t, s, "alice", "bob")

	// X O X / X O O / O X X
	moves := []struct {
		player  ClientID
		r, c    int
		outcome Outcome
	}{
		{"alice", 0, 0, Continue},
		{"bob", 0, 1, Continue},
		{"alice", 0, 2, Continue},
		{"bob", 1, 1, Continue},
		{"alice", 1, 0, Continue},
		{"bob", 1, 2, Continue},
		{"alice", 2, 1, Continue},
		{"bob", 2, 0, Continue},
		{"alice", 2, 2, Draw},
	}

	for _, mv := range moves {
		res, err := s.Move(id, mv.player, mv.r, mv.c)
		require.NoError(t, err)
		require.Equal(t, mv.outcome, res.Outcome, "move (%d,%d)", mv.r, mv.c)
	}

	// On a draw either player may start the rematch.
	newID, opponent, err := s.Rematch(id, "bob")
	require.NoError(t, err)
	assert.Equal(t, ClientID("alice"), opponent)
	assert.NotEqual(t, id, newID)
}

func TestResign(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice", "bob", "eve")
	id := startedMatch(t, s, "alice", "bob")

	_, err := s.Resign(id, "eve")
	assert.ErrorIs(t, err, ErrNotPlayer)

	res, err := s.Resign(id, "bob")
	require.NoError(t, err)
	assert.Equal(t, ClientID("alice"), res.Opponent)
	assert.Equal(t, "alice", res.WinnerName)

	_, err = s.Resign(id, "bob")
	assert.ErrorIs(t, err, ErrMatchNotPlaying)

	// Resigner is the loser and may not rematch.
	_, _, err = s.Rematch(id, "bob")
	assert.ErrorIs(t, err, ErrLoserRematch)
	_, _, err = s.Rematch(id, "alice")
	require.NoError(t, err)
}

func TestRematchRules(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice", "bob", "eve")
	id := startedMatch(t, s, "alice", "bob")

	// alice wins the top row.
	playForcedWin(t, s, id)

	t.Run("loser is denied", func(t *testing.T) {
		_, _, err := s.Rematch(id, "bob")
		assert.ErrorIs(t, err, ErrLoserRematch)
	})

	t.Run("outsider is denied", func(t *testing.T) {
		_, _, err := s.Rematch(id, "eve")
		assert.ErrorIs(t, err, ErrNotPlayer)
	})

	t.Run("winner recycles the slot", func(t *testing.T) {
		newID, opponent, err := s.Rematch(id, "alice")
		require.NoError(t, err)
		assert.Equal(t, ClientID("bob"), opponent)
		assert.Greater(t, newID, id)

		// Old id is gone, new match waits in the lobby owned by alice.
		_, err = s.BoardOf(id)
		assert.ErrorIs(t, err, ErrMatchNotFound)

		summaries := s.List()
		require.Len(t, summaries, 1)
		assert.Equal(t, newID, summaries[0].ID)
		assert.Equal(t, "alice", summaries[0].Owner)
		assert.Equal(t, StatusWaiting, summaries[0].Status)

		_, ok := s.FindRematch("alice")
		assert.False(t, ok)
	})

	t.Run("rematch on a non-finished match", func(t *testing.T) {
		lobbyID, err := s.Create("eve")
		require.NoError(t, err)
		_, _, err = s.Rematch(lobbyID, "eve")
		assert.ErrorIs(t, err, ErrRematchUnavailable)
	})
}

func TestRematchFreesCapacityForTheNewMatch(t *testing.T) {
	s, _ := newTestStore(t, 1, "alice", "bob")
	id := startedMatch(t, s, "alice", "bob")
	playForcedWin(t, s, id)

	// With capacity 1 the recycle only works because the old slot is
	// freed in the same critical section.
	newID, _, err := s.Rematch(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, id+1, newID)
}

func playForcedWin(t *testing.T, s *Store, id int) {
	t.Helper()
	for _, mv := range []struct {
		player ClientID
		r, c   int
	}{
		{"alice", 0, 0}, {"bob", 1, 0}, {"alice", 0, 1}, {"bob", 1, 1}, {"alice", 0, 2},
	} {
		_, err := s.Move(id, mv.player, mv.r, mv.c)
		require.NoError(t, err)
	}
}

func TestFindRematchWithoutFinishedMatch(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice")
	_, ok := s.FindRematch("alice")
	assert.False(t, ok)

	_, err := s.Create("alice")
	require.NoError(t, err)
	_, ok = s.FindRematch("alice")
	assert.False(t, ok, "a waiting match is not a rematch candidate")
}

func TestListOrdersByID(t *testing.T) {
	s, _ := newTestStore(t, 8, "alice", "bob")

	id1, _ := s.Create("bob")
	id2, _ := s.Create("alice")
	id3, _ := s.Create("bob")

	summaries := s.List()
	require.Len(t, summaries, 3)
	assert.Equal(t, []int{id1, id2, id3},
		[]int{summaries[0].ID, summaries[1].ID, summaries[2].ID})
	assert.Equal(t, "bob", summaries[0].Owner)
	assert.Equal(t, "alice", summaries[1].Owner)
}

func TestOnDisconnect(t *testing.T) {
	t.Run("owner of a waiting match frees the slot", func(t *testing.T) {
		s, _ := newTestStore(t, 8, "alice")
		id, _ := s.Create("alice")

		notices := s.OnDisconnect("alice")
		assert.Empty(t, notices)
		_, err := s.BoardOf(id)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("owner of a pending match reports the pending joiner", func(t *testing.T) {
		s, _ := newTestStore(t, 8, "alice", "bob")
		id, _ := s.Create("alice")
		_, err := s.RequestJoin(id, "bob")
		require.NoError(t, err)

		notices := s.OnDisconnect("alice")
		require.Len(t, notices, 1)
		assert.Equal(t, Notice{To: "bob", Kind: NoticeOwnerLeft, MatchID: id}, notices[0])
		_, err = s.BoardOf(id)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("pending joiner regresses the match to waiting", func(t *testing.T) {
		s, _ := newTestStore(t, 8, "alice", "bob", "carol")
		id, _ := s.Create("alice")
		_, err := s.RequestJoin(id, "bob")
		require.NoError(t, err)

		notices := s.OnDisconnect("bob")
		assert.Empty(t, notices)

		// Slot survives and is joinable again.
		_, err = s.RequestJoin(id, "carol")
		require.NoError(t, err)
	})

	t.Run("playing participant hands the opponent a win", func(t *testing.T) {
		s, _ := newTestStore(t, 8, "alice", "bob")
		id := startedMatch(t, s, "alice", "bob")

		notices := s.OnDisconnect("bob")
		require.Len(t, notices, 1)
		assert.Equal(t, Notice{To: "alice", Kind: NoticeOpponentWin, MatchID: id}, notices[0])
		_, err := s.BoardOf(id)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("rematch participant leaves a declined notice", func(t *testing.T) {
		s, _ := newTestStore(t, 8, "alice", "bob")
		id := startedMatch(t, s, "alice", "bob")
		playForcedWin(t, s, id)

		notices := s.OnDisconnect("alice")
		require.Len(t, notices, 1)
		assert.Equal(t, Notice{To: "bob", Kind: NoticeRematchGone, MatchID: id}, notices[0])
	})

	t.Run("one disconnect can fire multiple outcomes", func(t *testing.T) {
		// bob owns a waiting match and is at the same time the pending
		// joiner of alice's match.
		s, _ := newTestStore(t, 8, "alice", "bob")
		ownID, err := s.Create("bob")
		require.NoError(t, err)
		aliceID, err := s.Create("alice")
		require.NoError(t, err)
		_, err = s.RequestJoin(aliceID, "bob")
		require.NoError(t, err)

		notices := s.OnDisconnect("bob")
		assert.Empty(t, notices)

		// bob's own match is gone, alice's regressed to waiting.
		_, err = s.BoardOf(ownID)
		assert.ErrorIs(t, err, ErrMatchNotFound)
		summaries := s.List()
		require.Len(t, summaries, 1)
		assert.Equal(t, aliceID, summaries[0].ID)
		assert.Equal(t, StatusWaiting, summaries[0].Status)
	})
}

func TestConcurrentJoinRequestsAdmitExactlyOne(t *testing.T) {
	s, reg := newTestStore(t, 8, "alice")
	id, err := s.Create("alice")
	require.NoError(t, err)

	const contenders = 8
	var wg sync.WaitGroup
	results := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		joiner := ClientID(fmt.Sprintf("joiner-%d", i))
		require.NoError(t, reg.Add(joiner, noopSend))
		wg.Add(1)
		go func(j ClientID) {
			defer wg.Done()
			_, err := s.RequestJoin(id, j)
			results <- err
		}(joiner)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrNotJoinable)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, losses)
}
