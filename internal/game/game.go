// Package game hosts one running match: the rule-engine position, the
// players with their turn state, and the worker goroutine that serializes
// every mutation. Public methods may be called from any goroutine; each
// enqueues a job onto the worker and waits for the outcome, so all board
// and player access is single-threaded per game.
package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/shaktris/shaktris/internal/board"
	"github.com/shaktris/shaktris/internal/events"
)

// Status is a game's lifecycle stage.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// Config carries a game's tunables.
type Config struct {
	// MinTurnDuration is the pacing floor applied to players that do not
	// bring their own.
	MinTurnDuration time.Duration
	// QueueSize bounds the worker queue. A full queue rejects
	// submissions with ErrBackpressure instead of blocking producers.
	QueueSize int
	// Rules are the board-level parameters.
	Rules board.Config
}

// DefaultConfig returns the standard game tunables.
func DefaultConfig() Config {
	return Config{
		MinTurnDuration: 10 * time.Second,
		QueueSize:       128,
		Rules:           board.DefaultConfig(),
	}
}

// Game is one match.
type Game struct {
	id     string
	cfg    Config
	bus    *events.Bus
	logger *log.Logger

	queue    chan func()
	quit     chan struct{}
	stopOnce sync.Once

	// Worker-owned state. Only the run loop touches it.
	pos       *board.Position
	players   map[string]*Player
	joinOrder []string
	status    Status
	winner    string
	endReason string
	zoneSeq   int
}

// New creates a game and starts its worker.
func New(id string, cfg Config, bus *events.Bus, logger *log.Logger) *Game {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.Rules.ClearWidth <= 0 {
		cfg.Rules = board.DefaultConfig()
	}
	g := &Game{
		id:      id,
		cfg:     cfg,
		bus:     bus,
		logger:  logger.WithPrefix("game").With("game", id),
		queue:   make(chan func(), cfg.QueueSize),
		quit:    make(chan struct{}),
		pos:     board.NewPosition(cfg.Rules),
		players: make(map[string]*Player),
		status:  StatusWaiting,
	}
	go g.run()
	return g
}

// ID returns the game id.
func (g *Game) ID() string {
	return g.id
}

// Stop terminates the worker and closes the game's event stream. Pending
// jobs are abandoned; their callers get ErrGameClosed.
func (g *Game) Stop() {
	g.stopOnce.Do(func() {
		close(g.quit)
		g.bus.CloseGame(g.id)
	})
}

func (g *Game) run() {
	for {
		select {
		case job := <-g.queue:
			g.perform(job)
		case <-g.quit:
			return
		}
	}
}

// perform executes one job, converting a panic into a fatal game end so
// one broken game never takes the process down.
func (g *Game) perform(job func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("worker panic", "panic", r)
			g.endGame("", EndReasonInternalError)
			g.publishSnapshot()
		}
	}()
	job()
}

// do runs fn on the worker and waits for it to finish. A full queue
// rejects immediately; an expired context abandons the wait, in which
// case fn may still run and its effects show up on the event stream.
func (g *Game) do(ctx context.Context, fn func()) error {
	select {
	case <-g.quit:
		return ErrGameClosed
	default:
	}

	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}
	select {
	case g.queue <- job:
	default:
		return ErrBackpressure
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.quit:
		return ErrGameClosed
	}
}

func (g *Game) publish(typ string, payload any) {
	g.bus.Publish(g.id, typ, payload)
}

func (g *Game) publishSnapshot() {
	g.bus.Publish(g.id, events.SnapshotType, g.buildSnapshot(""))
}

// actingPlayer resolves a player who wants to mutate the game, applying
// the checks shared by every move kind. Pacing is checked before phase so
// a too-fast resubmission reads as TooSoon rather than WrongPhase.
func (g *Game) actingPlayer(playerID string, now time.Time) (*Player, error) {
	pl, ok := g.players[playerID]
	if !ok {
		return nil, ErrPlayerNotInGame
	}
	if g.status != StatusPlaying || !pl.Active {
		return nil, ErrNotYourTurn
	}
	if err := pl.tooSoon(now); err != nil {
		return nil, err
	}
	return pl, nil
}

// endGame moves the game to ended. Idempotent; the first reason wins.
func (g *Game) endGame(winner, reason string) {
	if g.status == StatusEnded {
		return
	}
	g.status = StatusEnded
	g.winner = winner
	g.endReason = reason
	var w *string
	if winner != "" {
		w = &winner
	}
	g.publish(EventGameEnded, GameEndedPayload{Winner: w, EndReason: reason})
	g.logger.Info("game ended", "winner", winner, "reason", reason)
}

// JoinParams describes a joining player.
type JoinParams struct {
	PlayerID string
	Name     string
	Kind     PlayerKind
	// MinDuration overrides the game's pacing floor for this player.
	// Zero keeps the game default.
	MinDuration time.Duration
}

// JoinResult reports how a join was resolved.
type JoinResult struct {
	Rejoined bool
	Snapshot *Snapshot
}

// Join adds a player to the game, or reattaches a returning one. A new
// player gets a home zone, the initial sixteen pieces, and a seeded piece
// bag; a returning player keeps everything they had.
func (g *Game) Join(ctx context.Context, p JoinParams) (*JoinResult, error) {
	var (
		res *JoinResult
		err error
	)
	if derr := g.do(ctx, func() { res, err = g.join(p) }); derr != nil {
		return nil, derr
	}
	return res, err
}

func (g *Game) join(p JoinParams) (*JoinResult, error) {
	now := time.Now()

	if pl, ok := g.players[p.PlayerID]; ok {
		pl.Connected = true
		pl.Active = true
		g.publish(EventPlayerJoined, PlayerJoinedPayload{
			PlayerID:   pl.ID,
			Name:       pl.Name,
			IsComputer: pl.Kind.IsComputer(),
			Rejoined:   true,
			HomeZone:   zoneSnapshot(pl.Zone),
		})
		g.publishSnapshot()
		g.logger.Info("player rejoined", "player", pl.ID)
		return &JoinResult{Rejoined: true, Snapshot: g.buildSnapshot(pl.ID)}, nil
	}

	zone := zoneForIndex(p.PlayerID, g.zoneSeq)
	g.zoneSeq++
	g.pos.AddZone(zone)
	for _, pc := range board.InitialPieces(zone, uuid.NewString) {
		g.pos.AddPiece(pc)
	}

	minDuration := p.MinDuration
	if minDuration <= 0 {
		minDuration = g.cfg.MinTurnDuration
	}
	name := p.Name
	if name == "" {
		name = p.PlayerID
	}
	pl := &Player{
		ID:             p.PlayerID,
		Name:           name,
		Kind:           p.Kind,
		Active:         true,
		Connected:      true,
		Zone:           zone,
		Bag:            board.NewBag(),
		Phase:          PhaseTetris,
		PhaseStartedAt: now,
		MinDuration:    minDuration,
	}
	first := pl.Bag.Next()
	pl.ActiveTetromino = &first
	g.players[p.PlayerID] = pl
	g.joinOrder = append(g.joinOrder, p.PlayerID)

	if g.status == StatusWaiting {
		g.status = StatusPlaying
		g.publish(EventGameStarted, GameStartedPayload{GameID: g.id})
	}
	g.publish(EventPlayerJoined, PlayerJoinedPayload{
		PlayerID:   pl.ID,
		Name:       pl.Name,
		IsComputer: pl.Kind.IsComputer(),
		HomeZone:   zoneSnapshot(zone),
	})
	g.publishSnapshot()
	g.logger.Info("player joined", "player", pl.ID, "name", pl.Name, "zone", zone.Min)
	return &JoinResult{Snapshot: g.buildSnapshot(pl.ID)}, nil
}

// Disconnect detaches a player's transport. Their pieces, zone, and turn
// state stay in place for a later rejoin.
func (g *Game) Disconnect(ctx context.Context, playerID string) error {
	var err error
	if derr := g.do(ctx, func() { err = g.disconnect(playerID) }); derr != nil {
		return derr
	}
	return err
}

func (g *Game) disconnect(playerID string) error {
	pl, ok := g.players[playerID]
	if !ok {
		return ErrPlayerNotInGame
	}
	pl.Connected = false
	pl.Active = false
	g.publish(EventPlayerLeft, PlayerLeftPayload{PlayerID: playerID})

	// With every opponent gone the match cannot continue; the sole
	// remaining player takes it. A solo game stays open for a rejoin.
	if g.status == StatusPlaying && len(g.players) > 1 {
		var last *Player
		remaining := 0
		for _, p := range g.players {
			if p.Connected {
				last, remaining = p, remaining+1
			}
		}
		if remaining == 1 {
			g.endGame(last.ID, EndReasonOpponentsLeft)
		}
	}

	g.publishSnapshot()
	g.logger.Info("player left", "player", playerID)
	return nil
}

// PlaceOutcome is the acknowledgement for an accepted placement.
type PlaceOutcome struct {
	Cells           []board.Point   `json:"cells"`
	ClearedLines    []board.Line    `json:"clearedLines,omitempty"`
	ClearedCells    []board.Point   `json:"clearedCells,omitempty"`
	FallenCells     []board.Point   `json:"fallenCells,omitempty"`
	DestroyedPieces []PieceSnapshot `json:"destroyedPieces,omitempty"`
	Phase           Phase           `json:"phase"`
}

// PlaceTetromino validates and applies a placement for playerID.
func (g *Game) PlaceTetromino(ctx context.Context, playerID string, t board.Tetromino) (*PlaceOutcome, error) {
	var (
		res *PlaceOutcome
		err error
	)
	if derr := g.do(ctx, func() { res, err = g.placeTetromino(playerID, t) }); derr != nil {
		return nil, derr
	}
	return res, err
}

func (g *Game) placeTetromino(playerID string, t board.Tetromino) (*PlaceOutcome, error) {
	now := time.Now()
	pl, err := g.actingPlayer(playerID, now)
	if err != nil {
		return nil, err
	}
	if pl.Phase != PhaseTetris {
		return nil, ErrWrongPhase
	}

	res, err := g.pos.Place(t, playerID, now)
	if err != nil {
		return nil, err
	}
	pl.LastActionAt = now
	pl.ActiveTetromino = nil

	g.publish(EventTetrominoPlaced, TetrominoPlacedPayload{
		PlayerID: playerID,
		Type:     t.Type,
		Rotation: t.Rotation,
		Position: t.Pos,
		Cells:    res.Cells,
	})

	out := &PlaceOutcome{
		Cells:        res.Cells,
		ClearedLines: res.Lines,
		ClearedCells: res.ClearedCells,
		FallenCells:  res.FallenCells,
	}
	for i := range res.DestroyedPieces {
		out.DestroyedPieces = append(out.DestroyedPieces, pieceSnapshot(&res.DestroyedPieces[i]))
	}
	if len(res.Lines) > 0 || len(res.FallenCells) > 0 {
		g.publish(EventRowsCleared, RowsClearedPayload{
			Lines:           res.Lines,
			Cells:           res.ClearedCells,
			FallenCells:     res.FallenCells,
			DestroyedPieces: out.DestroyedPieces,
		})
	}

	if len(res.KingsLost) > 0 {
		for _, id := range res.KingsLost {
			if lost := g.players[id]; lost != nil {
				lost.Active = false
			}
		}
		g.endGame("", EndReasonKingLost)
		g.publishSnapshot()
		out.Phase = pl.Phase
		return out, nil
	}

	pl.Phase = PhaseChess
	pl.PhaseStartedAt = now
	g.autoSkip(now)
	g.publishSnapshot()
	out.Phase = pl.Phase
	return out, nil
}

// MoveOutcome is the acknowledgement for an accepted chess move.
type MoveOutcome struct {
	PieceID  string         `json:"pieceId"`
	From     board.Point    `json:"from"`
	To       board.Point    `json:"to"`
	Captured *PieceSnapshot `json:"captured,omitempty"`
	Promoted bool           `json:"promoted,omitempty"`
	Winner   *string        `json:"winner,omitempty"`
	Phase    Phase          `json:"phase"`
}

// MoveChess validates and applies a chess move for playerID.
func (g *Game) MoveChess(ctx context.Context, playerID, pieceID string, to board.Point) (*MoveOutcome, error) {
	var (
		res *MoveOutcome
		err error
	)
	if derr := g.do(ctx, func() { res, err = g.moveChess(playerID, pieceID, to) }); derr != nil {
		return nil, derr
	}
	return res, err
}

func (g *Game) moveChess(playerID, pieceID string, to board.Point) (*MoveOutcome, error) {
	now := time.Now()
	pl, err := g.actingPlayer(playerID, now)
	if err != nil {
		return nil, err
	}
	if pl.Phase != PhaseChess {
		return nil, ErrWrongPhase
	}

	res, err := g.pos.MoveChess(pieceID, to, playerID)
	if err != nil {
		return nil, err
	}
	pl.LastActionAt = now

	g.publish(EventChessMoved, ChessMovedPayload{
		PlayerID: playerID,
		PieceID:  res.PieceID,
		From:     res.From,
		To:       res.To,
		Promoted: res.Promoted,
	})

	out := &MoveOutcome{PieceID: res.PieceID, From: res.From, To: res.To, Promoted: res.Promoted}
	if res.Captured != nil {
		snap := pieceSnapshot(res.Captured)
		out.Captured = &snap
		g.publish(EventPieceCaptured, PieceCapturedPayload{CaptorID: playerID, Piece: snap})
	}

	if res.KingCaptured {
		if victim := g.players[res.Captured.PlayerID]; victim != nil {
			victim.Active = false
		}
		g.endGame(playerID, EndReasonKingCaptured)
		w := playerID
		out.Winner = &w
	} else {
		pl.Phase = PhaseTetris
		pl.PhaseStartedAt = now
		g.autoSkip(now)
	}
	g.publishSnapshot()
	out.Phase = pl.Phase
	return out, nil
}

// autoSkip returns any chess-phase player with no legal move to tetris,
// emitting skipChess. Runs after every board mutation so a capture that
// strands an opponent mid-turn cannot leave them stuck.
func (g *Game) autoSkip(now time.Time) {
	ids := make([]string, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		pl := g.players[id]
		if pl.Phase != PhaseChess || !pl.Active {
			continue
		}
		if g.pos.HasLegalChessMove(id) {
			continue
		}
		pl.Phase = PhaseTetris
		pl.PhaseStartedAt = now
		g.publish(EventSkipChess, SkipChessPayload{PlayerID: id, Reason: SkipReasonNoLegalMoves})
	}
}

// TetrominoDraw is the response to request_tetromino.
type TetrominoDraw struct {
	Current board.TetrominoType `json:"current"`
	Next    board.TetrominoType `json:"next"`
}

// DrawTetromino draws the player's next piece from their bag. Drawing is
// not pacing-gated; only placements and chess moves are.
func (g *Game) DrawTetromino(ctx context.Context, playerID string) (*TetrominoDraw, error) {
	var (
		res *TetrominoDraw
		err error
	)
	if derr := g.do(ctx, func() { res, err = g.drawTetromino(playerID) }); derr != nil {
		return nil, derr
	}
	return res, err
}

func (g *Game) drawTetromino(playerID string) (*TetrominoDraw, error) {
	pl, ok := g.players[playerID]
	if !ok {
		return nil, ErrPlayerNotInGame
	}
	if g.status != StatusPlaying || !pl.Active {
		return nil, ErrNotYourTurn
	}
	t := pl.Bag.Next()
	pl.ActiveTetromino = &t
	return &TetrominoDraw{Current: t, Next: pl.Bag.Peek(0)}, nil
}

// AvailableTetrominos reports the player's current piece and the one
// after it without drawing.
func (g *Game) AvailableTetrominos(ctx context.Context, playerID string) (*TetrominoDraw, error) {
	var (
		res *TetrominoDraw
		err error
	)
	if derr := g.do(ctx, func() { res, err = g.availableTetrominos(playerID) }); derr != nil {
		return nil, derr
	}
	return res, err
}

func (g *Game) availableTetrominos(playerID string) (*TetrominoDraw, error) {
	pl, ok := g.players[playerID]
	if !ok {
		return nil, ErrPlayerNotInGame
	}
	if pl.ActiveTetromino != nil {
		return &TetrominoDraw{Current: *pl.ActiveTetromino, Next: pl.Bag.Peek(0)}, nil
	}
	return &TetrominoDraw{Current: pl.Bag.Peek(0), Next: pl.Bag.Peek(1)}, nil
}

// Snapshot builds the current wire state. viewerID selects whose next
// tetromino is included; spectators pass the empty string.
func (g *Game) Snapshot(ctx context.Context, viewerID string) (*Snapshot, error) {
	var res *Snapshot
	if derr := g.do(ctx, func() { res = g.buildSnapshot(viewerID) }); derr != nil {
		return nil, derr
	}
	return res, nil
}

// PublishSnapshot pushes a fresh snapshot onto the event stream. Used
// when a subscriber attaches so their first event is a full state.
func (g *Game) PublishSnapshot(ctx context.Context) error {
	return g.do(ctx, g.publishSnapshot)
}

// Restart rebuilds the game in place, preserving the player roster.
// Zones are reallocated in the original join order, pieces and bags are
// rebuilt, and play begins again.
func (g *Game) Restart(ctx context.Context) error {
	return g.do(ctx, g.restart)
}

func (g *Game) restart() {
	now := time.Now()
	g.pos = board.NewPosition(g.cfg.Rules)
	g.zoneSeq = 0
	g.winner = ""
	g.endReason = ""
	g.status = StatusPlaying

	for _, id := range g.joinOrder {
		pl := g.players[id]
		zone := zoneForIndex(id, g.zoneSeq)
		g.zoneSeq++
		g.pos.AddZone(zone)
		for _, pc := range board.InitialPieces(zone, uuid.NewString) {
			g.pos.AddPiece(pc)
		}
		pl.Zone = zone
		pl.Bag = board.NewBag()
		first := pl.Bag.Next()
		pl.ActiveTetromino = &first
		pl.Phase = PhaseTetris
		pl.PhaseStartedAt = now
		pl.LastActionAt = time.Time{}
		pl.Active = pl.Connected
	}

	g.publish(EventGameStarted, GameStartedPayload{GameID: g.id})
	g.publishSnapshot()
	g.logger.Info("game restarted", "players", len(g.joinOrder))
}
