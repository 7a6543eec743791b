// Package network defines the wire protocol: the text of every reply
// and event line, and the parsing of inbound command lines.
package network

import (
	"errors"
	"strconv"
	"strings"
)

// Replies and events. Every message is newline-terminated; formatted
// messages are printf templates.
const (
	// Welcome
	Welcome   = "WELCOME\n"
	HintLogin = "Please LOGIN <name>\n"
	HintCmds  = "Commands: LOGIN <name>, WHOAMI, USERS, CREATE, LIST, " +
		"JOIN <id>, ACCEPT <id>, REJECT <id>, " +
		"MOVE <r> <c>, BOARD, RESIGN, REMATCH, QUIT\n"

	// Login
	OkLogin        = "OK LOGIN %s\n"
	ErrNameTaken   = "ERR NAME_TAKEN\n"
	ErrBadName     = "ERR BAD_NAME\n"
	ErrPleaseLogin = "ERR PLEASE_LOGIN\n"

	// Generic
	OkWhoami      = "OK YOU %s\n"
	UserEntry     = "USER %s\n"
	NoUsers       = "NO_USERS\n"
	Bye           = "BYE\n"
	ErrUnknownCmd = "ERR UNKNOWN_CMD\n"
	ErrBadUsage   = "ERR BAD_USAGE\n"

	// CREATE / LIST
	OkMatchCreated = "OK MATCH_CREATED %d\n"
	ErrMatchesFull = "ERR MATCHES_FULL\n"
	MatchEntry     = "MATCH %d owner=%s status=%s\n"
	NoMatches      = "NO_MATCHES\n"

	// JOIN
	OkJoinRequested   = "OK JOIN_REQUESTED\n"
	ErrMatchNotFound  = "ERR MATCH_NOT_FOUND\n"
	ErrMatchNotJoin   = "ERR MATCH_NOT_JOINABLE\n"
	ErrCannotJoinOwn  = "ERR CANNOT_JOIN_OWN_MATCH\n"
	ErrJoinFailed     = "ERR JOIN_FAILED\n"
	ErrAlreadyPlaying = "ERR ALREADY_PLAYING\n"
	EventJoinRequest  = "EVENT JOIN_REQUEST %d %s\n"

	// ACCEPT
	OkMatchStartedX = "OK MATCH_STARTED %d vs %s (YOU=X)\n"
	OkMatchStartedO = "OK MATCH_STARTED %d vs %s (YOU=O)\n"
	ErrNotOwner     = "ERR NOT_OWNER\n"
	ErrNoPending    = "ERR NO_PENDING_REQUEST\n"
	ErrAcceptFailed = "ERR ACCEPT_FAILED\n"

	// REJECT
	OkRejected      = "OK REJECTED\n"
	ErrRejectFailed = "ERR REJECT_FAILED\n"
	ErrJoinRejected = "ERR JOIN_REJECTED\n"

	// MOVE
	OkMoved            = "OK MOVED\n"
	ErrNotInMatch      = "ERR NOT_IN_MATCH\n"
	ErrNotYourTurn     = "ERR NOT_YOUR_TURN\n"
	ErrBadMove         = "ERR BAD_MOVE\n"
	ErrMatchNotPlaying = "ERR MATCH_NOT_PLAYING\n"
	ErrMoveFailed      = "ERR MOVE_FAILED\n"
	EventOpponentMoved = "EVENT OPPONENT_MOVED %d %d\n"

	// Game end
	EventYouWin   = "EVENT YOU_WIN\n"
	EventYouLose  = "EVENT YOU_LOSE\n"
	EventDraw     = "EVENT DRAW\n"
	EventWinner   = "EVENT WINNER %s\n"
	EventGameOver = "EVENT GAME_OVER Type REMATCH to play again, QUIT to leave\n"

	// RESIGN
	ErrNoOpponent   = "ERR NO_OPPONENT\n"
	ErrResignFailed = "ERR RESIGN_FAILED\n"

	// REMATCH. Only the winner (or either player after a draw) may start
	// one; the new match opens in the lobby and the old opponent is
	// invited to JOIN it.
	OkRematchCreated    = "OK REMATCH_CREATED %d\n"
	EventRematchOffered = "EVENT REMATCH_OFFERED %s %d\n"
	EventRematchDecline = "EVENT REMATCH_DECLINED\n"
	ErrRematchNotAvail  = "ERR REMATCH_NOT_AVAILABLE\n"
	ErrRematchLoser     = "ERR REMATCH_LOSER\n"

	// Disconnect / async events
	EventOppDisconnected = "EVENT OPPONENT_DISCONNECTED\n"
	ErrMatchClosed       = "ERR MATCH_CLOSED_OWNER_LEFT\n"

	// Lobby broadcasts
	EventMatchAvailable = "EVENT MATCH_AVAILABLE %d owner=%s\n"
	EventMatchStarted   = "EVENT MATCH_STARTED %d\n"
	EventMatchFinished  = "EVENT MATCH_FINISHED %d\n"
)

// Command verbs
const (
	CmdLogin   = "LOGIN"
	CmdWhoami  = "WHOAMI"
	CmdUsers   = "USERS"
	CmdCreate  = "CREATE"
	CmdList    = "LIST"
	CmdJoin    = "JOIN"
	CmdAccept  = "ACCEPT"
	CmdReject  = "REJECT"
	CmdMove    = "MOVE"
	CmdBoard   = "BOARD"
	CmdResign  = "RESIGN"
	CmdRematch = "REMATCH"
	CmdQuit    = "QUIT"
)

// Parse errors
var (
	ErrEmptyLine      = errors.New("empty line")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad usage")
)

// Command is one decoded client line
type Command struct {
	Verb string
	Name string // LOGIN
	ID   int    // JOIN, ACCEPT, REJECT
	Row  int    // MOVE
	Col  int    // MOVE
}

// Parse decodes one inbound line. The trailing newline must already be
// stripped; an optional trailing \r is handled here.
func Parse(line string) (Command, error) {
	line = strings.TrimSuffix(line, "\r")
	line = strings.TrimLeft(line, " \t")

	var cmd Command
	if line == "" {
		return cmd, ErrEmptyLine
	}

	verb := line
	rest := ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		verb = line[:i]
		rest = strings.TrimSpace(line[i+1:])
	}

	switch verb {
	case CmdLogin:
		if rest == "" {
			return cmd, ErrUsage
		}
		cmd.Verb = CmdLogin
		cmd.Name = rest
		return cmd, nil

	case CmdWhoami, CmdUsers, CmdCreate, CmdList, CmdBoard, CmdResign, CmdRematch:
		if rest != "" {
			return cmd, ErrUsage
		}
		cmd.Verb = verb
		return cmd, nil

	case CmdQuit, "quit":
		cmd.Verb = CmdQuit
		return cmd, nil

	case CmdJoin, CmdAccept, CmdReject:
		id, err := strconv.Atoi(rest)
		if err != nil {
			return cmd, ErrUsage
		}
		cmd.Verb = verb
		cmd.ID = id
		return cmd, nil

	case CmdMove:
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return cmd, ErrUsage
		}
		r, err1 := strconv.Atoi(fields[0])
		c, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return cmd, ErrUsage
		}
		cmd.Verb = CmdMove
		cmd.Row = r
		cmd.Col = c
		return cmd, nil

	default:
		return cmd, ErrUnknownCommand
	}
}
