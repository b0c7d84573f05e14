package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/engine"
)

const (
	defaultSaveInterval = 30 * time.Second
	saveTimeout         = 10 * time.Second
)

// DesignLoader returns the stored design for a room.
type DesignLoader func(ctx context.Context, designID string) (*design.SavedDesign, error)

// DesignSaver persists a room's committed design.
type DesignSaver func(ctx context.Context, designID string, d *design.SavedDesign) error

// Room is one editor session: a design, its engine and the connections
// watching it.
type Room struct {
	designID      string
	clients       map[string]*Client // clientID -> client
	engine        *engine.Engine
	savedRevision int64
	seq           int64
}

type inbound struct {
	client *Client
	msg    *Message
}

// Hub owns every room. All room state, engines included, is touched only by
// the Run goroutine, so commands from different connections are applied one
// at a time in arrival order.
type Hub struct {
	rooms      map[string]*Room // designID -> room
	register   chan *Client
	unregister chan *Client
	incoming   chan inbound
	stop       chan struct{}
	done       chan struct{}

	load         DesignLoader
	save         DesignSaver
	engineOpts   []engine.Option
	SaveInterval time.Duration
}

func NewHub(load DesignLoader, save DesignSaver, engineOpts ...engine.Option) *Hub {
	return &Hub{
		rooms:        make(map[string]*Room),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		incoming:     make(chan inbound, 64),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		load:         load,
		save:         save,
		engineOpts:   engineOpts,
		SaveInterval: defaultSaveInterval,
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(h.SaveInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case in := <-h.incoming:
			h.handleMessage(in.client, in.msg)
		case <-ticker.C:
			h.saveAll()
		case <-h.stop:
			h.shutdown()
			return
		}
	}
}

// Stop saves every dirty room, disconnects all clients and waits for Run to exit.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) submit(client *Client, msg *Message) {
	select {
	case h.incoming <- inbound{client: client, msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) openRoom(designID string) (*Room, error) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	d := design.NewEmptyDesign(design.DefaultProductType)
	if h.load != nil {
		loaded, err := h.load(ctx, designID)
		if err != nil {
			return nil, err
		}
		d = loaded
	}

	eng := engine.NewEngine(h.engineOpts...)
	eng.LoadDesign(d)
	return &Room{
		designID:      designID,
		clients:       make(map[string]*Client),
		engine:        eng,
		savedRevision: eng.Revision(),
	}, nil
}

func (h *Hub) addClient(client *Client) {
	room, ok := h.rooms[client.DesignID]
	if !ok {
		var err error
		room, err = h.openRoom(client.DesignID)
		if err != nil {
			slog.Error("load design", "design", client.DesignID, "error", err)
			client.Send(errorMessage("failed to load design"))
			close(client.send)
			return
		}
		h.rooms[client.DesignID] = room
	}
	room.clients[client.ClientID] = client

	welcome, _ := json.Marshal(WelcomePayload{ClientID: client.ClientID, State: room.engine.GetState()})
	client.Send(&Message{Type: TypeWelcome, DesignID: room.designID, Payload: welcome})

	joinPayload, _ := json.Marshal(SessionPayload{UserID: client.UserID, DisplayName: client.DisplayName})
	h.broadcastToRoom(room, &Message{Type: TypeJoin, UserID: client.UserID, Payload: joinPayload}, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "design", client.DesignID)
}

func (h *Hub) removeClient(client *Client) {
	room, ok := h.rooms[client.DesignID]
	if !ok {
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)

	if len(room.clients) == 0 {
		h.saveRoom(room)
		delete(h.rooms, client.DesignID)
	} else {
		leavePayload, _ := json.Marshal(SessionPayload{UserID: client.UserID})
		h.broadcastToRoom(room, &Message{Type: TypeLeave, UserID: client.UserID, Payload: leavePayload}, "")
	}

	slog.Info("client left", "user", client.UserID, "design", client.DesignID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.rooms[sender.DesignID]
	if !ok {
		return
	}
	if _, ok := room.clients[sender.ClientID]; !ok {
		return
	}

	if msg.Type == TypeSave {
		if err := h.saveRoom(room); err != nil {
			sender.Send(errorMessage("failed to save design"))
		}
		return
	}

	changed, err := applyCommand(room.engine, msg)
	if err != nil {
		slog.Warn("rejected command", "type", msg.Type, "user", sender.UserID, "error", err)
		sender.Send(errorMessage(err.Error()))
		return
	}
	if changed {
		h.broadcastState(room)
	}
}

func (h *Hub) broadcastState(room *Room) {
	room.seq++
	payload, err := json.Marshal(StatePayload{State: room.engine.GetState(), Commands: room.engine.Render()})
	if err != nil {
		slog.Error("marshal state", "error", err)
		return
	}
	data, err := json.Marshal(&Message{Type: TypeState, DesignID: room.designID, Seq: room.seq, Payload: payload})
	if err != nil {
		slog.Error("marshal state", "error", err)
		return
	}
	for _, c := range room.clients {
		c.SendState(data)
	}
}

func (h *Hub) broadcastToRoom(room *Room, msg *Message, excludeClientID string) {
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}

// saveRoom persists the room if its engine has committed changes since the last save.
func (h *Hub) saveRoom(room *Room) error {
	rev := room.engine.Revision()
	if h.save == nil || rev == room.savedRevision {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := h.save(ctx, room.designID, room.engine.Snapshot()); err != nil {
		slog.Error("save design", "design", room.designID, "error", err)
		return err
	}
	room.savedRevision = rev
	slog.Info("design saved", "design", room.designID, "revision", rev)
	return nil
}

func (h *Hub) saveAll() {
	for _, room := range h.rooms {
		h.saveRoom(room)
	}
}

func (h *Hub) shutdown() {
	h.saveAll()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			close(c.send)
		}
		delete(h.rooms, id)
	}
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Message: text})
	return &Message{Type: TypeError, Payload: payload}
}
