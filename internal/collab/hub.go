package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/inkboard/inkboard/internal/agent"
	"github.com/inkboard/inkboard/internal/presence"
	"github.com/inkboard/inkboard/internal/shape"
	redisstore "github.com/inkboard/inkboard/internal/store/redis"
)

// PlaygroundBoardID is open to anonymous users and seeded with the sample board.
const PlaygroundBoardID = "board_playground"

const (
	DefaultAgentTimeout = 90 * time.Second
	saveTimeout         = 10 * time.Second
)

// DocLoader returns the persisted shapes of a board. An unknown board returns
// no shapes and a nil error.
type DocLoader func(ctx context.Context, boardID string) ([]shape.Shape, error)

// DocSaver persists a board's shapes.
type DocSaver func(ctx context.Context, boardID string, shapes []shape.Shape) error

// Relay fans room traffic out to other server instances.
type Relay interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// AgentRunner plans shape operations for a request.
type AgentRunner interface {
	Run(ctx context.Context, req agent.Request) agent.Response
}

type Options struct {
	Load  DocLoader
	Save  DocSaver
	Relay Relay
	Agent AgentRunner
	Guard *agent.Guard
	// InstanceID tags relayed messages so an instance skips its own.
	InstanceID     string
	AgentTimeout   time.Duration
	SaveInterval   time.Duration
	OriginPatterns []string
}

type Room struct {
	boardID  string
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
	doc      *DocumentState

	stopRelay context.CancelFunc
}

func newRoom(boardID string, doc *DocumentState) *Room {
	return &Room{
		boardID:   boardID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		doc:       doc,
		stopRelay: func() {},
	}
}

type Hub struct {
	opts  Options
	guard *agent.Guard

	mu         sync.RWMutex
	rooms      map[string]*Room // boardID -> room
	register   chan *Client
	unregister chan *Client

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewHub(opts Options) *Hub {
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = DefaultAgentTimeout
	}
	guard := opts.Guard
	if guard == nil {
		guard = agent.NewGuard(0)
	}
	return &Hub{
		opts:       opts,
		guard:      guard,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes joins and leaves and saves dirty boards on the configured
// interval until Stop is called.
func (h *Hub) Run() {
	var tick <-chan time.Time
	if h.opts.SaveInterval > 0 {
		ticker := time.NewTicker(h.opts.SaveInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-tick:
			h.saveDirty()
		case <-h.stop:
			h.shutdown()
			close(h.done)
			return
		}
	}
}

// Stop saves every dirty board and disconnects all clients. Run must be running.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Register adds the client to its board's room and returns once the join
// messages are queued. It returns false when the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
	case <-h.done:
		return false
	}
	select {
	case <-client.ready:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) room(boardID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[boardID]
	return room, ok
}

func (h *Hub) addClient(client *Client) {
	defer close(client.ready)

	room, ok := h.room(client.BoardID)
	if !ok {
		room = h.openRoom(client.BoardID)
	}

	h.mu.Lock()
	h.rooms[client.BoardID] = room
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	if msg, err := newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
		BoardID:     client.BoardID,
	}); err == nil {
		client.Send(msg)
	}
	if msg, err := newMessage(TypeDocSync, DocSyncPayload{Shapes: shape.Records(room.doc.Shapes())}); err == nil {
		client.Send(msg)
	} else {
		slog.Error("marshal doc sync", "board", client.BoardID, "error", err)
	}
	if msg := room.presence.StateMessage(); msg != nil {
		client.Send(msg)
	}

	slog.Info("client joined", "user", client.UserID, "board", client.BoardID, "client", client.ClientID)
}

func (h *Hub) openRoom(boardID string) *Room {
	var shapes []shape.Shape
	if h.opts.Load != nil {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		loaded, err := h.opts.Load(ctx, boardID)
		cancel()
		if err != nil {
			slog.Warn("load board", "board", boardID, "error", err)
		}
		shapes = loaded
	}
	if len(shapes) == 0 && boardID == PlaygroundBoardID {
		shapes = shape.NewSampleBoard("system")
	}

	room := newRoom(boardID, NewDocumentState(shapes))
	if h.opts.Relay != nil {
		ctx, cancel := context.WithCancel(context.Background())
		messages, cleanup, err := h.opts.Relay.Subscribe(ctx, redisstore.BoardChannel(boardID))
		if err != nil {
			cancel()
			slog.Warn("relay subscribe", "board", boardID, "error", err)
		} else {
			room.stopRelay = cancel
			go h.relayLoop(ctx, boardID, messages, cleanup)
		}
	}

	slog.Info("room opened", "board", boardID, "shapes", len(shapes))
	return room
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.BoardID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.BoardID)
	}
	h.mu.Unlock()

	h.guard.Forget(client.ClientID)

	if leave, err := newMessage(TypePresenceLeave, PresenceLeavePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
	}); err == nil {
		leave.ClientID = client.ClientID
		leave.UserID = client.UserID
		h.broadcastToRoom(client.BoardID, leave, "")
		h.publish(client.BoardID, leave)
	}

	if empty {
		h.closeRoom(room)
	}

	slog.Info("client left", "user", client.UserID, "board", client.BoardID, "client", client.ClientID)
}

func (h *Hub) closeRoom(room *Room) {
	room.stopRelay()
	h.saveRoom(room)
	room.doc.Close()
	slog.Info("room closed", "board", room.boardID)
}

func (h *Hub) saveRoom(room *Room) {
	if h.opts.Save == nil || !room.doc.Dirty() {
		return
	}
	shapes, version := room.doc.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := h.opts.Save(ctx, room.boardID, shapes); err != nil {
		slog.Error("save board", "board", room.boardID, "error", err)
		return
	}
	room.doc.MarkSaved(version)
	slog.Debug("board saved", "board", room.boardID, "shapes", len(shapes))
}

func (h *Hub) allRooms() []*Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, r)
	}
	return out
}

func (h *Hub) saveDirty() {
	for _, room := range h.allRooms() {
		h.saveRoom(room)
	}
}

func (h *Hub) shutdown() {
	h.saveDirty()

	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	for _, room := range rooms {
		for _, c := range room.clients {
			c.close()
		}
	}
	h.mu.Unlock()

	for _, room := range rooms {
		room.stopRelay()
		room.doc.Close()
	}
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeShapeSet:
		h.handleShapeSet(sender, msg)
	case TypeShapeDelete:
		h.handleShapeDelete(sender, msg)
	case TypeAgentRequest:
		h.handleAgentRequest(ctx, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		sender.SendError(CodeUnknownType, fmt.Sprintf("unknown message type %q", msg.Type), "")
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var rec presence.Record
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		sender.SendError(CodeBadMessage, "invalid presence payload", "")
		return
	}

	rec.User.ID = sender.UserID
	if rec.User.Name == "" {
		rec.User.Name = sender.DisplayName
	}

	room, ok := h.room(sender.BoardID)
	if !ok {
		return
	}
	room.presence.Update(sender.ClientID, rec)

	out, err := newMessage(TypePresenceUpdate, rec)
	if err != nil {
		return
	}
	out.ClientID = sender.ClientID
	out.UserID = sender.UserID
	h.broadcastToRoom(sender.BoardID, out, sender.ClientID)
	h.publish(sender.BoardID, out)
}

func (h *Hub) handleShapeSet(sender *Client, msg *Message) {
	var payload ShapeSetPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		sender.SendError(CodeBadMessage, "invalid shape.set payload: "+err.Error(), "")
		return
	}

	room, ok := h.room(sender.BoardID)
	if !ok {
		return
	}
	if _, err := room.doc.ApplySet(payload.Shapes); err != nil {
		sender.SendError(CodeBadMessage, err.Error(), "")
		return
	}

	out := &Message{Type: TypeShapeSet, ClientID: sender.ClientID, UserID: sender.UserID, Payload: msg.Payload}
	h.broadcastToRoom(sender.BoardID, out, sender.ClientID)
	h.publish(sender.BoardID, out)
}

func (h *Hub) handleShapeDelete(sender *Client, msg *Message) {
	var payload ShapeDeletePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		sender.SendError(CodeBadMessage, "invalid shape.delete payload", "")
		return
	}

	room, ok := h.room(sender.BoardID)
	if !ok {
		return
	}
	room.doc.ApplyDelete(payload.IDs)

	out := &Message{Type: TypeShapeDelete, ClientID: sender.ClientID, UserID: sender.UserID, Payload: msg.Payload}
	h.broadcastToRoom(sender.BoardID, out, sender.ClientID)
	h.publish(sender.BoardID, out)
}

// handleAgentRequest runs the agent off the read loop and answers the requester
// only. The requester replays the operations and broadcasts them like any
// other local edit.
func (h *Hub) handleAgentRequest(ctx context.Context, sender *Client, msg *Message) {
	var req agent.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		sender.SendError(CodeBadMessage, "agent request needs a prompt", req.RequestID)
		return
	}
	if h.opts.Agent == nil {
		sender.SendError(CodeAgentOffline, "the agent is not configured", req.RequestID)
		return
	}

	if err := h.guard.Acquire(sender.BoardID, sender.ClientID); err != nil {
		code := CodeAgentBusy
		if errors.Is(err, agent.ErrRateLimited) {
			code = CodeRateLimited
		}
		sender.SendError(code, err.Error(), req.RequestID)
		return
	}

	if req.Shapes == nil {
		if room, ok := h.room(sender.BoardID); ok {
			req.Shapes = shape.SummarizeAll(room.doc.Shapes())
		}
	}

	go func() {
		defer h.guard.Release(sender.BoardID, sender.ClientID)

		runCtx, cancel := context.WithTimeout(ctx, h.opts.AgentTimeout)
		defer cancel()

		start := time.Now()
		resp := h.opts.Agent.Run(runCtx, req)
		resp.RequestID = req.RequestID
		slog.Info("agent request finished",
			"board", sender.BoardID,
			"client", sender.ClientID,
			"operations", len(resp.Operations),
			"truncated", resp.Truncated,
			"failed", resp.Error != "",
			"elapsed", time.Since(start),
		)

		out, err := newMessage(TypeAgentResponse, resp)
		if err != nil {
			slog.Error("marshal agent response", "error", err)
			return
		}
		sender.Send(out)
	}()
}

func (h *Hub) broadcastToRoom(boardID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[boardID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal broadcast", "type", msg.Type, "error", err)
		return
	}
	for _, c := range clients {
		c.sendRaw(data)
	}
}

func (h *Hub) publish(boardID string, msg *Message) {
	if h.opts.Relay == nil {
		return
	}
	out := *msg
	out.BoardID = boardID
	out.Origin = h.opts.InstanceID
	data, err := json.Marshal(out)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := h.opts.Relay.Publish(ctx, redisstore.BoardChannel(boardID), data); err != nil {
		slog.Warn("relay publish", "board", boardID, "error", err)
	}
}

func (h *Hub) relayLoop(ctx context.Context, boardID string, messages <-chan []byte, cleanup func()) {
	defer cleanup()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-messages:
			if !ok {
				return
			}
			h.handleRelayed(boardID, data)
		}
	}
}

// handleRelayed applies a message another instance published for boardID and
// forwards it to the local clients.
func (h *Hub) handleRelayed(boardID string, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("invalid relayed message", "board", boardID, "error", err)
		return
	}
	if msg.Origin == h.opts.InstanceID {
		return
	}
	room, ok := h.room(boardID)
	if !ok {
		return
	}

	switch msg.Type {
	case TypeShapeSet:
		var payload ShapeSetPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		if _, err := room.doc.ApplySet(payload.Shapes); err != nil {
			return
		}
	case TypeShapeDelete:
		var payload ShapeDeletePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		room.doc.ApplyDelete(payload.IDs)
	case TypePresenceUpdate:
		var rec presence.Record
		if err := json.Unmarshal(msg.Payload, &rec); err != nil {
			return
		}
		room.presence.Update(msg.ClientID, rec)
	case TypePresenceLeave:
		room.presence.Remove(msg.ClientID)
	default:
		return
	}

	msg.Origin = ""
	h.broadcastToRoom(boardID, &msg, "")
}
