// internal/handlers/table.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/hanabi/internal/auth"
	"github.com/jason-s-yu/hanabi/internal/game"
	"github.com/jason-s-yu/hanabi/internal/models"
	"github.com/sirupsen/logrus"
)

// Transport delivers encoded messages to connections. Send must not block on
// the network; the table calls it while holding its lock.
type Transport interface {
	Send(connID string, data []byte) error
	Close(connID string, reason string)
}

// ActionRecorder receives every accepted move. The redis publisher implements it.
type ActionRecorder interface {
	Publish(ctx context.Context, rec models.ActionRecord) error
}

var (
	ErrNoSeatToken  = errors.New("no seat token")
	ErrNotSeated    = errors.New("token does not name a seated player")
	ErrTokensNotSet = errors.New("seat tokens are disabled")
)

// TableOptions configures a Table. Only Rules is required.
type TableOptions struct {
	Rules        game.Rules
	EnforceTurns bool
	Gate         *auth.PasswordGate
	Tokens       *auth.TokenIssuer
	Recorder     ActionRecorder
	Logger       logrus.FieldLogger

	// RecordBuffer is how many records may wait for the recorder before new
	// ones are dropped. Defaults to 256.
	RecordBuffer int

	// NewGame builds each game the table runs. Defaults to game.NewGame.
	NewGame func(game.Rules) (*game.Game, error)
}

// Table is the single game table. It tracks which connection belongs to which
// player and turns raw client messages into engine calls and broadcasts.
// HandleRequest, Connect and Disconnect are serialized by one lock, so all
// messages caused by one request are handed to the transport before the next
// request is looked at.
type Table struct {
	mu        sync.Mutex
	opts      TableOptions
	log       logrus.FieldLogger
	transport Transport

	game        *game.Game
	conns       map[string]string // connection id -> player name, "" until joined
	actionIndex int

	// records feeds publishRecords; nil without a recorder.
	records     chan models.ActionRecord
	recordsDone chan struct{}
	closed      bool
}

// NewTable creates a table with a fresh game waiting for players.
func NewTable(transport Transport, opts TableOptions) (*Table, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.NewGame == nil {
		logger := opts.Logger
		opts.NewGame = func(r game.Rules) (*game.Game, error) {
			return game.NewGame(r, game.WithLogger(logger))
		}
	}
	t := &Table{
		opts:      opts,
		log:       opts.Logger,
		transport: transport,
	}
	if err := t.reset(); err != nil {
		return nil, err
	}
	if opts.Recorder != nil {
		size := opts.RecordBuffer
		if size < 1 {
			size = 256
		}
		t.records = make(chan models.ActionRecord, size)
		t.recordsDone = make(chan struct{})
		go t.publishRecords()
	}
	return t, nil
}

// Close stops recording and waits until queued records are published. The
// table keeps serving requests afterwards, unrecorded.
func (t *Table) Close() {
	t.mu.Lock()
	if t.records == nil || t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.records)
	t.mu.Unlock()
	<-t.recordsDone
}

// Connect registers a newly opened connection.
func (t *Table) Connect(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[connID] = ""
	t.log.WithField("conn", connID).Debug("Connection registered.")
}

// Disconnect forgets a closed connection. A seated player keeps their seat
// and hand; once no seated player is connected the game is abandoned and the
// table resets, keeping connections that never joined.
func (t *Table) Disconnect(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name, ok := t.conns[connID]
	if !ok {
		return
	}
	delete(t.conns, connID)
	if name == "" {
		return
	}
	t.log.WithFields(logrus.Fields{"conn": connID, "player": name}).Info("Player connection closed.")

	if t.seatedConnections() > 0 {
		return
	}
	t.log.Warnf("All players left game %s, abandoning it.", t.game.ID)
	t.record(name, models.ActionAbandoned, map[string]int{"score": t.game.Score()})
	waiting := make([]string, 0, len(t.conns))
	for id := range t.conns {
		waiting = append(waiting, id)
	}
	if err := t.reset(waiting...); err != nil {
		t.log.Errorf("Failed to reset table: %v", err)
	}
}

// HandleRequest processes one raw message from connID.
func (t *Table) HandleRequest(connID string, raw []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name, ok := t.conns[connID]
	if !ok {
		t.log.WithField("conn", connID).Warn("Message from unknown connection dropped.")
		return
	}
	logger := t.log.WithField("conn", connID)

	msgType, err := readMsgType(raw)
	if err != nil {
		logger.Debugf("Unreadable message: %s", raw)
		t.sendError(connID, explainUnreadableType, "")
		return
	}
	joined := name != ""
	switch {
	case msgType == MsgConnectionRequest && joined:
		t.sendError(connID, explainAlreadyConnected, "")
		return
	case msgType != MsgConnectionRequest && !joined:
		t.sendError(connID, explainNotConnected, "")
		return
	case msgType == MsgConnectionRequest && t.game.Started():
		t.sendError(connID, explainJoinAfterStart, "")
		return
	}
	if t.opts.EnforceTurns && isAction(msgType) {
		if cur, started := t.game.CurrentPlayer(); started && cur != name {
			t.sendError(connID, explainNotYourTurn, fmt.Sprintf("it is %s's turn", cur))
			return
		}
	}

	req, err := decodeRequest(msgType, raw)
	if err != nil {
		t.sendError(connID, explainBadPayload, err.Error())
		return
	}
	logger.WithField("player", name).Debugf("Handling %s.", msgType)

	switch r := req.(type) {
	case ConnectionRequest:
		t.join(connID, r)
	case GameStartRequest:
		t.start(connID, name)
	case DiscardRequest:
		t.discard(connID, name, r)
	case PlayCardRequest:
		t.play(connID, name, r)
	case HintColorRequest:
		t.hintColor(connID, name, r)
	case HintNumberRequest:
		t.hintNumber(connID, name, r)
	default:
		logger.Errorf("Unhandled request type %T.", req)
	}
}

// GameID is the id of the game currently at the table.
func (t *Table) GameID() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.game.ID
}

// ViewFor returns the state as seen by the holder of a seat token.
func (t *Table) ViewFor(token string) (game.TableView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.opts.Tokens == nil {
		return game.TableView{}, ErrTokensNotSet
	}
	if token == "" {
		return game.TableView{}, ErrNoSeatToken
	}
	name, err := t.opts.Tokens.Verify(token, t.game.ID)
	if err != nil {
		return game.TableView{}, err
	}
	for _, n := range t.game.PlayerNames() {
		if n == name {
			return t.game.View(name), nil
		}
	}
	return game.TableView{}, ErrNotSeated
}

func (t *Table) join(connID string, r ConnectionRequest) {
	if !t.opts.Gate.Admit(r.Password) {
		t.sendError(connID, explainBadPassword, "")
		return
	}
	if err := t.game.AddPlayer(r.Name); err != nil {
		t.sendEngineError(connID, err)
		return
	}
	t.conns[connID] = r.Name

	var token string
	if t.opts.Tokens != nil {
		var err error
		if token, err = t.opts.Tokens.IssueSeatToken(t.game.ID, r.Name); err != nil {
			t.log.Errorf("Failed to issue seat token for %s: %v", r.Name, err)
		}
	}

	names := t.game.PlayerNames()
	gameID := t.game.ID.String()
	t.broadcast(func(viewer string) any {
		resp := ConnectionResponse{
			MsgType: MsgConnectionResponse,
			Names:   names,
			Player:  r.Name,
			GameID:  gameID,
		}
		if viewer == r.Name {
			resp.Token = token
		}
		return resp
	})
	t.record(r.Name, models.ActionJoin, map[string]string{"player": r.Name})
}

func (t *Table) start(connID, name string) {
	if err := t.game.Start(); err != nil {
		t.sendEngineError(connID, err)
		return
	}
	players := t.game.PlayerNames()
	next, _ := t.game.CurrentPlayer()
	if ghosts := t.unconnectedSeats(players); len(ghosts) > 0 {
		t.log.WithField("players", ghosts).Warnf("Game %s started with seats that have no connection.", t.game.ID)
	}
	t.broadcast(func(viewer string) any {
		return GameStartResponse{
			MsgType:    MsgGameStartResponse,
			Players:    players,
			NextPlayer: next,
			GameState:  t.game.View(viewer),
		}
	})
	t.record(name, models.ActionStart, map[string]any{"players": players, "rules": t.game.Rules})
}

func (t *Table) discard(connID, name string, r DiscardRequest) {
	out, err := t.game.DiscardCard(name, r.DiscardedCardID)
	if err != nil {
		t.sendEngineError(connID, err)
		return
	}
	t.broadcast(func(viewer string) any {
		return DiscardCardResponse{
			MsgType:       MsgDiscardResponse,
			Player:        out.Player,
			DiscardedCard: out.Discarded,
			DrawnCard:     game.DrawnCardView(viewer, name, out.Drawn),
			HintGained:    out.HintGained,
			NextPlayer:    out.NextPlayer,
			GameState:     t.game.View(viewer),
		}
	})
	t.record(name, models.ActionDiscard, out)
	t.finishIfOver()
}

func (t *Table) play(connID, name string, r PlayCardRequest) {
	out, err := t.game.PlayCard(name, r.PlayedCardID)
	if err != nil {
		t.sendEngineError(connID, err)
		return
	}
	t.broadcast(func(viewer string) any {
		return PlayCardResponse{
			MsgType:    MsgPlayCardResponse,
			Player:     out.Player,
			PlayedCard: out.Card,
			Success:    out.Success,
			DrawnCard:  game.DrawnCardView(viewer, name, out.Drawn),
			HintGained: out.HintGained,
			EpicFail:   out.EpicFail,
			NextPlayer: out.NextPlayer,
			GameState:  t.game.View(viewer),
		}
	})
	t.record(name, models.ActionPlay, out)
	t.finishIfOver()
}

func (t *Table) hintColor(connID, name string, r HintColorRequest) {
	out, err := t.game.HintColor(name, r.TargetPlayer, r.Color)
	if err != nil {
		t.sendEngineError(connID, err)
		return
	}
	t.broadcast(func(viewer string) any {
		return HintColorResponse{
			MsgType:       MsgHintColorResponse,
			HintingPlayer: out.From,
			TargetPlayer:  out.Target,
			Color:         r.Color,
			MatchedIDs:    out.Matched,
			NextPlayer:    out.NextPlayer,
			GameState:     t.game.View(viewer),
		}
	})
	t.record(name, models.ActionHint, out)
	t.finishIfOver()
}

func (t *Table) hintNumber(connID, name string, r HintNumberRequest) {
	out, err := t.game.HintNumber(name, r.TargetPlayer, r.Number)
	if err != nil {
		t.sendEngineError(connID, err)
		return
	}
	t.broadcast(func(viewer string) any {
		return HintNumberResponse{
			MsgType:       MsgHintNumberResponse,
			HintingPlayer: out.From,
			TargetPlayer:  out.Target,
			Number:        r.Number,
			MatchedIDs:    out.Matched,
			NextPlayer:    out.NextPlayer,
			GameState:     t.game.View(viewer),
		}
	})
	t.record(name, models.ActionHint, out)
	t.finishIfOver()
}

// finishIfOver announces the final score, closes every connection and seats
// a fresh game.
func (t *Table) finishIfOver() {
	if !t.game.IsOver() {
		return
	}
	state := t.game.State()
	score := t.game.Score()
	t.broadcast(func(viewer string) any {
		return GameOverResponse{
			MsgType:   MsgGameOverResponse,
			Score:     score,
			Reason:    state.Reason,
			GameState: t.game.View(viewer),
		}
	})
	t.record("", models.ActionGameOver, map[string]any{"score": score, "reason": state.Reason})
	t.log.Infof("Game %s over (%s) with score %d.", t.game.ID, state.Reason, score)

	t.closeAll("game over")
	if err := t.reset(); err != nil {
		t.log.Errorf("Failed to reset table: %v", err)
	}
}

// reset seats a fresh game. keep lists connections that stay registered,
// unjoined, at the new table.
func (t *Table) reset(keep ...string) error {
	g, err := t.opts.NewGame(t.opts.Rules)
	if err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	t.game = g
	t.conns = make(map[string]string, len(keep))
	for _, id := range keep {
		t.conns[id] = ""
	}
	t.actionIndex = 0
	return nil
}

// closeAll asks the transport to close every connection, joined or not.
func (t *Table) closeAll(reason string) {
	for connID := range t.conns {
		t.transport.Close(connID, reason)
	}
}

// unconnectedSeats lists the players whose connection has closed.
func (t *Table) unconnectedSeats(players []string) []string {
	connected := make(map[string]bool, len(t.conns))
	for _, name := range t.conns {
		connected[name] = true
	}
	var ghosts []string
	for _, name := range players {
		if !connected[name] {
			ghosts = append(ghosts, name)
		}
	}
	return ghosts
}

func (t *Table) seatedConnections() int {
	n := 0
	for _, name := range t.conns {
		if name != "" {
			n++
		}
	}
	return n
}

// broadcast sends build(player) to every joined connection, in connection id
// order so runs are reproducible.
func (t *Table) broadcast(build func(viewer string) any) {
	ids := make([]string, 0, len(t.conns))
	for connID, name := range t.conns {
		if name != "" {
			ids = append(ids, connID)
		}
	}
	sort.Strings(ids)
	for _, connID := range ids {
		t.send(connID, build(t.conns[connID]))
	}
}

func (t *Table) send(connID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		t.log.Errorf("Failed to encode %T for %s: %v", msg, connID, err)
		return
	}
	if err := t.transport.Send(connID, data); err != nil {
		t.log.WithField("conn", connID).Warnf("Failed to send message: %v", err)
	}
}

func (t *Table) sendError(connID, explanation, details string) {
	t.send(connID, ErrorResponse{
		MsgType:     MsgErrorResponse,
		Explanation: explanation,
		ErrDetails:  details,
	})
}

func (t *Table) sendEngineError(connID string, err error) {
	t.sendError(connID, explain(err), err.Error())
}

// record queues an accepted move for the recorder. It never blocks: when the
// recorder falls behind the record is dropped.
func (t *Table) record(actor, actionType string, payload any) {
	idx := t.actionIndex
	t.actionIndex++
	if t.records == nil || t.closed {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.log.Errorf("Failed to encode %s record: %v", actionType, err)
		return
	}
	rec := models.ActionRecord{
		GameID:      t.game.ID,
		ActionIndex: idx,
		Actor:       actor,
		ActionType:  actionType,
		Payload:     data,
		Timestamp:   time.Now().UnixMilli(),
	}
	select {
	case t.records <- rec:
	default:
		t.log.Warnf("Record queue full, dropped %s #%d for game %s.", actionType, idx, rec.GameID)
	}
}

// publishRecords hands queued records to the recorder one at a time, so they
// arrive in action order.
func (t *Table) publishRecords() {
	defer close(t.recordsDone)
	for rec := range t.records {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := t.opts.Recorder.Publish(ctx, rec)
		cancel()
		if err != nil {
			t.log.Warnf("Failed to record %s for game %s: %v", rec.ActionType, rec.GameID, err)
		}
	}
}
