// Package server implements the TCP server: the accept loop and the
// per-connection command loop that drives the match engine.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"tris-server/internal/game"
	"tris-server/internal/network"
	"tris-server/pkg/logger"
)

// Server owns the listening socket and one goroutine per connection.
// All shared state lives in the registry and the match store; the
// server itself only tracks live sessions so Stop can close them.
type Server struct {
	address  string
	listener net.Listener
	registry *game.Registry
	store    *game.Store
	logger   *logger.Logger

	mu        sync.Mutex
	sessions  map[game.ClientID]*session
	isRunning bool
}

// session is the per-connection write side. The mutex serializes writes
// from the client's own goroutine and from notifications sent by other
// connections' goroutines.
type session struct {
	id     game.ClientID
	conn   net.Conn
	writer *bufio.Writer
	mu     sync.Mutex
}

func (s *session) send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.WriteString(text); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *session) sendf(format string, args ...interface{}) error {
	return s.send(fmt.Sprintf(format, args...))
}

// NewServer creates a server over the given registry and store
func NewServer(address string, registry *game.Registry, store *game.Store) *Server {
	return &Server{
		address:  address,
		registry: registry,
		store:    store,
		logger:   logger.Server,
		sessions: make(map[game.ClientID]*session),
	}
}

// Start begins listening and accepting connections. It blocks until the
// listener is closed.
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()

	s.logger.Info("Server started and listening on %s", s.address)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running() {
				return nil
			}
			s.logger.Error("Failed to accept connection: %v", err)
			continue
		}
		go s.handleClient(conn)
	}
}

// Addr returns the bound listener address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Stop shuts down the listener and every live connection
func (s *Server) Stop() error {
	s.mu.Lock()
	s.isRunning = false
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	for _, sess := range sessions {
		sess.conn.Close()
	}

	s.logger.Info("Server stopped")
	return nil
}

// handleClient runs the command loop for one connection
func (s *Server) handleClient(conn net.Conn) {
	defer conn.Close()

	sess := &session{
		id:     game.ClientID(uuid.NewString()),
		conn:   conn,
		writer: bufio.NewWriter(conn),
	}

	if err := s.registry.Add(sess.id, sess.send); err != nil {
		s.logger.Warn("Rejecting connection from %s: %v", conn.RemoteAddr(), err)
		return
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("Client connected: %s from %s", sess.id, conn.RemoteAddr())

	sess.send(network.Welcome)
	sess.send(network.HintLogin)
	sess.send(network.HintCmds)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		cmd, err := network.Parse(scanner.Text())
		if err != nil {
			switch {
			case errors.Is(err, network.ErrEmptyLine):
				continue
			case errors.Is(err, network.ErrUsage):
				sess.send(network.ErrBadUsage)
				continue
			default:
				sess.send(network.ErrUnknownCmd)
				continue
			}
		}

		if cmd.Verb == network.CmdQuit {
			sess.send(network.Bye)
			break
		}

		name, loggedIn := s.registry.Name(sess.id)
		if !loggedIn {
			s.handlePreLogin(sess, cmd)
			continue
		}
		s.dispatch(sess, name, cmd)
	}

	s.disconnect(sess)
}

// handlePreLogin accepts only LOGIN before authentication
func (s *Server) handlePreLogin(sess *session, cmd network.Command) {
	if cmd.Verb != network.CmdLogin {
		sess.send(network.ErrPleaseLogin)
		return
	}

	err := s.registry.Login(sess.id, cmd.Name)
	switch {
	case err == nil:
		s.logger.Info("Client %s logged in as %q", sess.id, cmd.Name)
		sess.sendf(network.OkLogin, cmd.Name)
	case errors.Is(err, game.ErrNameTaken):
		sess.send(network.ErrNameTaken)
	default:
		sess.send(network.ErrBadName)
	}
}

// dispatch handles one post-login command
func (s *Server) dispatch(sess *session, me string, cmd network.Command) {
	switch cmd.Verb {
	case network.CmdLogin:
		// Relogin is not supported
		sess.send(network.ErrUnknownCmd)

	case network.CmdWhoami:
		sess.sendf(network.OkWhoami, me)

	case network.CmdUsers:
		users := s.registry.Users()
		if len(users) == 0 {
			sess.send(network.NoUsers)
			return
		}
		var out string
		for _, u := range users {
			out += fmt.Sprintf(network.UserEntry, u)
		}
		sess.send(out)

	case network.CmdCreate:
		s.handleCreate(sess, me)

	case network.CmdList:
		s.handleList(sess)

	case network.CmdJoin:
		s.handleJoin(sess, me, cmd.ID)

	case network.CmdAccept:
		s.handleAccept(sess, me, cmd.ID)

	case network.CmdReject:
		s.handleReject(sess, cmd.ID)

	case network.CmdMove:
		s.handleMove(sess, cmd.Row, cmd.Col)

	case network.CmdBoard:
		s.handleBoard(sess)

	case network.CmdResign:
		s.handleResign(sess)

	case network.CmdRematch:
		s.handleRematch(sess, me)

	default:
		sess.send(network.ErrUnknownCmd)
	}
}

func (s *Server) handleCreate(sess *session, me string) {
	id, err := s.store.Create(sess.id)
	if err != nil {
		sess.send(network.ErrMatchesFull)
		return
	}
	s.logger.Info("Match %d created by %s", id, me)
	sess.sendf(network.OkMatchCreated, id)
	s.registry.Broadcast(fmt.Sprintf(network.EventMatchAvailable, id, me), sess.id)
}

func (s *Server) handleList(sess *session) {
	summaries := s.store.List()
	if len(summaries) == 0 {
		sess.send(network.NoMatches)
		return
	}
	var out string
	for _, sum := range summaries {
		out += fmt.Sprintf(network.MatchEntry, sum.ID, sum.Owner, sum.Status)
	}
	sess.send(out)
}

func (s *Server) handleJoin(sess *session, me string, matchID int) {
	if _, playing := s.registry.ActiveMatch(sess.id); playing {
		sess.send(network.ErrAlreadyPlaying)
		return
	}

	owner, err := s.store.RequestJoin(matchID, sess.id)
	switch {
	case err == nil:
		sess.send(network.OkJoinRequested)
		s.registry.Send(owner, fmt.Sprintf(network.EventJoinRequest, matchID, me))
	case errors.Is(err, game.ErrMatchNotFound):
		sess.send(network.ErrMatchNotFound)
	case errors.Is(err, game.ErrNotJoinable):
		sess.send(network.ErrMatchNotJoin)
	case errors.Is(err, game.ErrOwnMatch):
		sess.send(network.ErrCannotJoinOwn)
	default:
		sess.send(network.ErrJoinFailed)
	}
}

func (s *Server) handleAccept(sess *session, me string, matchID int) {
	joiner, err := s.store.Accept(matchID, sess.id)
	switch {
	case err == nil:
		s.registry.SetActiveMatch(sess.id, matchID)
		s.registry.SetActiveMatch(joiner, matchID)

		joinerName := "??"
		if n, ok := s.registry.Name(joiner); ok {
			joinerName = n
		}
		s.logger.Info("Match %d started: %s (X) vs %s (O)", matchID, me, joinerName)

		sess.sendf(network.OkMatchStartedX, matchID, joinerName)
		s.registry.Send(joiner, fmt.Sprintf(network.OkMatchStartedO, matchID, me))

		if board, err := s.store.BoardOf(matchID); err == nil {
			sess.send(board)
			s.registry.Send(joiner, board)
		}
		s.registry.Broadcast(fmt.Sprintf(network.EventMatchStarted, matchID), game.NoClient)

	case errors.Is(err, game.ErrMatchNotFound):
		sess.send(network.ErrMatchNotFound)
	case errors.Is(err, game.ErrNotOwner):
		sess.send(network.ErrNotOwner)
	case errors.Is(err, game.ErrNoPending):
		sess.send(network.ErrNoPending)
	default:
		sess.send(network.ErrAcceptFailed)
	}
}

func (s *Server) handleReject(sess *session, matchID int) {
	rejected, err := s.store.Reject(matchID, sess.id)
	switch {
	case err == nil:
		sess.send(network.OkRejected)
		s.registry.Send(rejected, network.ErrJoinRejected)
	case errors.Is(err, game.ErrMatchNotFound):
		sess.send(network.ErrMatchNotFound)
	case errors.Is(err, game.ErrNotOwner):
		sess.send(network.ErrNotOwner)
	case errors.Is(err, game.ErrNoPending):
		sess.send(network.ErrNoPending)
	default:
		sess.send(network.ErrRejectFailed)
	}
}

func (s *Server) handleMove(sess *session, row, col int) {
	matchID, ok := s.registry.ActiveMatch(sess.id)
	if !ok {
		sess.send(network.ErrNotInMatch)
		return
	}

	res, err := s.store.Move(matchID, sess.id, row, col)
	switch {
	case err == nil:
		switch res.Outcome {
		case game.Continue:
			sess.send(network.OkMoved)
			sess.send(res.Board)
			s.registry.Send(res.Opponent, fmt.Sprintf(network.EventOpponentMoved, row, col))
			s.registry.Send(res.Opponent, res.Board)

		case game.Win:
			s.finishMatch(matchID, sess, res.Opponent,
				network.EventYouWin+fmt.Sprintf(network.EventWinner, res.WinnerName)+res.Board,
				network.EventYouLose+fmt.Sprintf(network.EventWinner, res.WinnerName)+res.Board)

		case game.Draw:
			s.finishMatch(matchID, sess, res.Opponent,
				network.EventDraw+res.Board,
				network.EventDraw+res.Board)
		}

	case errors.Is(err, game.ErrNotYourTurn):
		sess.send(network.ErrNotYourTurn)
	case errors.Is(err, game.ErrBadMove):
		sess.send(network.ErrBadMove)
	case errors.Is(err, game.ErrMatchNotPlaying):
		sess.send(network.ErrMatchNotPlaying)
	default:
		sess.send(network.ErrMoveFailed)
	}
}

// finishMatch delivers end-of-game messages to both players, clears
// their active-match pointers and announces the result to the lobby.
// The match itself stays in the store in rematch state.
func (s *Server) finishMatch(matchID int, sess *session, opponent game.ClientID, toMover, toOpponent string) {
	s.registry.ClearActiveMatch(sess.id)
	s.registry.ClearActiveMatch(opponent)

	sess.send(toMover)
	sess.send(network.EventGameOver)
	if opponent != game.NoClient {
		s.registry.Send(opponent, toOpponent)
		s.registry.Send(opponent, network.EventGameOver)
	}
	s.registry.Broadcast(fmt.Sprintf(network.EventMatchFinished, matchID), game.NoClient)
	s.logger.Info("Match %d finished", matchID)
}

func (s *Server) handleBoard(sess *session) {
	matchID, ok := s.registry.ActiveMatch(sess.id)
	if !ok {
		sess.send(network.ErrNotInMatch)
		return
	}
	board, err := s.store.BoardOf(matchID)
	if err != nil {
		sess.send(network.ErrMatchNotFound)
		return
	}
	sess.send(board)
}

func (s *Server) handleResign(sess *session) {
	matchID, ok := s.registry.ActiveMatch(sess.id)
	if !ok {
		sess.send(network.ErrNotInMatch)
		return
	}

	res, err := s.store.Resign(matchID, sess.id)
	switch {
	case err == nil:
		s.finishMatch(matchID, sess, res.Opponent,
			network.EventYouLose+fmt.Sprintf(network.EventWinner, res.WinnerName)+res.Board,
			network.EventYouWin+fmt.Sprintf(network.EventWinner, res.WinnerName)+res.Board)

	case errors.Is(err, game.ErrMatchNotPlaying):
		sess.send(network.ErrMatchNotPlaying)
	case errors.Is(err, game.ErrNoOpponent):
		sess.send(network.ErrNoOpponent)
	default:
		sess.send(network.ErrResignFailed)
	}
}

func (s *Server) handleRematch(sess *session, me string) {
	matchID, ok := s.store.FindRematch(sess.id)
	if !ok {
		sess.send(network.ErrRematchNotAvail)
		return
	}

	newID, opponent, err := s.store.Rematch(matchID, sess.id)
	switch {
	case err == nil:
		s.logger.Info("Match %d recycled into match %d by %s", matchID, newID, me)
		sess.sendf(network.OkRematchCreated, newID)
		if opponent != game.NoClient {
			s.registry.Send(opponent, fmt.Sprintf(network.EventRematchOffered, me, newID))
		}
		s.registry.Broadcast(fmt.Sprintf(network.EventMatchAvailable, newID, me), sess.id)

	case errors.Is(err, game.ErrLoserRematch):
		sess.send(network.ErrRematchLoser)
	case errors.Is(err, game.ErrMatchesFull):
		sess.send(network.ErrMatchesFull)
	default:
		sess.send(network.ErrRematchNotAvail)
	}
}

// disconnect runs the cleanup pass for a closing connection. Notices
// are computed inside the store's critical section and delivered here,
// after every lock is released.
func (s *Server) disconnect(sess *session) {
	name, _ := s.registry.Name(sess.id)
	if name == "" {
		name = "<not logged in>"
	}
	s.logger.Info("Client disconnected: %s (%s)", name, sess.id)

	notices := s.store.OnDisconnect(sess.id)
	for _, n := range notices {
		switch n.Kind {
		case game.NoticeOpponentWin:
			winner := "??"
			if w, ok := s.registry.Name(n.To); ok {
				winner = w
			}
			s.registry.Send(n.To, network.EventOppDisconnected+
				network.EventYouWin+
				fmt.Sprintf(network.EventWinner, winner))
			s.registry.ClearActiveMatch(n.To)

		case game.NoticeRematchGone:
			s.registry.Send(n.To, network.EventRematchDecline)

		case game.NoticeOwnerLeft:
			s.registry.Send(n.To, network.ErrMatchClosed)
		}
	}

	s.registry.Remove(sess.id)

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}
