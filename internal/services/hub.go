package services

import (
	"context"
	"log"
	"sync"

	"github.com/ridetrack/ridetrack-backend/internal/observability"
)

// room is the live membership set for one ride code. Each room carries its
// own mutex so broadcast enumeration for one ride never contends with
// another ride's traffic; the hub lock only guards the room map itself.
type room struct {
	mu      sync.Mutex
	members map[*Client]bool
}

// Hub maintains the set of active clients and the per-ride rooms they
// subscribe to. Rooms are purely in-memory and rebuilt empty on restart.
type Hub struct {
	directory RideDirectory

	mu      sync.RWMutex
	rooms   map[string]*room
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub that validates join codes against the given ride
// directory.
func NewHub(directory RideDirectory) *Hub {
	return &Hub{
		directory:  directory,
		rooms:      make(map[string]*room),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
	}
}

// Run starts the hub's registration loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.ConnectedClients.Inc()
			log.Printf("Client %d connected", client.UserID)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	h.leaveLocked(client)
	h.mu.Unlock()

	client.closeSend()
	observability.ConnectedClients.Dec()
	log.Printf("Client %d disconnected", client.UserID)
}

// leaveLocked removes the client from its current room, dropping the room
// once empty. Caller holds h.mu.
func (h *Hub) leaveLocked(client *Client) {
	if client.roomCode == "" {
		return
	}
	if r, ok := h.rooms[client.roomCode]; ok {
		r.mu.Lock()
		delete(r.members, client)
		empty := len(r.members) == 0
		r.mu.Unlock()
		if empty {
			delete(h.rooms, client.roomCode)
		}
	}
	client.roomCode = ""
}

// JoinRoom subscribes the client to a ride's update stream after checking
// the code against the ride directory. An unknown code changes nothing and
// is reported to the joiner alone. A client is in at most one room, so
// joining a new ride leaves the previous one; rejoining the same ride is a
// no-op.
func (h *Hub) JoinRoom(ctx context.Context, client *Client, rideCode string) error {
	if rideCode == "" {
		client.SendError("ride code is required")
		return ErrRideNotFound
	}

	if _, err := h.directory.RideIDByCode(ctx, rideCode); err != nil {
		client.SendError("Ride " + rideCode + " not found")
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if client.roomCode == rideCode {
		return nil
	}
	h.leaveLocked(client)

	r, ok := h.rooms[rideCode]
	if !ok {
		r = &room{members: make(map[*Client]bool)}
		h.rooms[rideCode] = r
	}
	r.mu.Lock()
	r.members[client] = true
	r.mu.Unlock()
	client.roomCode = rideCode

	return nil
}

// LeaveRoom removes the client from whatever room it is in. Always succeeds.
func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	h.leaveLocked(client)
	h.mu.Unlock()
}

// Broadcast delivers message to every current subscriber of the ride's
// room. The room mutex is held across enumeration, so concurrent broadcasts
// to the same room are applied in a single order and each subscriber's
// buffered channel sees them FIFO. A subscriber whose channel is full is
// dropped from the room rather than blocking the others; its connection is
// torn down asynchronously.
func (h *Hub) Broadcast(rideCode string, message []byte) {
	h.mu.RLock()
	r := h.rooms[rideCode]
	h.mu.RUnlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	for client := range r.members {
		select {
		case client.Send <- message:
		default:
			delete(r.members, client)
			log.Printf("Dropping slow client %d from ride %s", client.UserID, rideCode)
			select {
			case h.unregister <- client:
			default:
				go func(c *Client) { h.unregister <- c }(client)
			}
		}
	}
	r.mu.Unlock()

	observability.BroadcastsTotal.Inc()
}

// RoomSize reports the current subscriber count for a ride code.
func (h *Hub) RoomSize(rideCode string) int {
	h.mu.RLock()
	r := h.rooms[rideCode]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// GetConnectedClients returns the number of connected clients.
func (h *Hub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub and waits for the registration loop to
// pick it up.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues the client for removal. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
