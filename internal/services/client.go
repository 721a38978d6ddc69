package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Inbound and outbound event names. Anything else arriving on the wire is
// ignored at the boundary.
const (
	EventJoinRide       = "join_ride"
	EventUpdateLocation = "update_location"
	EventLocationUpdate = "location_update"
	EventMessage        = "message"
	EventError          = "error"
)

// Event is the tagged envelope every WebSocket frame carries. Data is left
// raw so each event type can be decoded against its own strict shape.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinRidePayload is the data of a join_ride event.
type JoinRidePayload struct {
	RideCode string `json:"ride_code"`
}

// ErrorPayload is the data of a unicast error event.
type ErrorPayload struct {
	Msg string `json:"msg"`
}

// MessagePayload is the data of an informational unicast.
type MessagePayload struct {
	Msg string `json:"msg"`
}

// Client represents one live WebSocket connection.
type Client struct {
	UserID   uint
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
	Pipeline *Pipeline

	// roomCode is the ride room this connection subscribes to, guarded by
	// the hub mutex.
	roomCode string

	// sendMu guards sendClosed and the close of Send. Persist workers may
	// still hold a pointer to a disconnected client, so unicasts have to
	// stay safe after teardown.
	sendMu     sync.Mutex
	sendClosed bool
}

// joinTimeout bounds the ride lookup a join performs.
const joinTimeout = 5 * time.Second

// HandleWebSocket upgrades the request and runs the connection's pumps.
func HandleWebSocket(hub *Hub, pipeline *Pipeline, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		UserID:   userID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
		Pipeline: pipeline,
	}

	hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection into the hub and
// the location pipeline. One bad frame never tears down the connection.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var event inboundEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Error unmarshaling WebSocket message: %v", err)
			continue
		}

		switch event.Type {
		case EventJoinRide:
			c.handleJoinRide(event.Data)
		case EventUpdateLocation:
			c.handleUpdateLocation(event.Data)
		default:
			log.Printf("Ignoring unknown WebSocket event %q from client %d", event.Type, c.UserID)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleJoinRide(data json.RawMessage) {
	var payload JoinRidePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Malformed join_ride from client %d: %v", c.UserID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	if err := c.Hub.JoinRoom(ctx, c, payload.RideCode); err != nil {
		return
	}
	c.SendEvent(EventMessage, MessagePayload{Msg: "Joined ride " + payload.RideCode})
}

func (c *Client) handleUpdateLocation(data json.RawMessage) {
	var report LocationReport
	if err := json.Unmarshal(data, &report); err != nil {
		log.Printf("Malformed update_location from client %d: %v", c.UserID, err)
		return
	}
	c.Pipeline.ReportLocation(c, report)
}

// SendEvent marshals and queues an event for this connection alone. A full
// send buffer drops the event; the room's lazy-drop handles the connection.
// After the connection is torn down this is a no-op, so a persist worker
// reporting a late failure cannot hit a closed channel.
func (c *Client) SendEvent(eventType string, data interface{}) {
	message, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.Send <- message:
	default:
		log.Printf("Warning: Could not send %s to client %d (channel full)", eventType, c.UserID)
	}
}

// closeSend closes the outbound channel exactly once and marks the client
// torn down. Called by the hub when the client unregisters.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// SendError unicasts an error event to this connection.
func (c *Client) SendError(msg string) {
	c.SendEvent(EventError, ErrorPayload{Msg: msg})
}
