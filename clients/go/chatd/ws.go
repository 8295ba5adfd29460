package chatd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Event is the envelope for everything the server pushes over a connection.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsFrame is a client-to-server websocket frame.
type wsFrame struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Content string `json:"content,omitempty"`
}

// Conn is a live websocket connection to the engine. Events arrive on the
// channel returned by Events; the channel closes when the connection drops.
type Conn struct {
	ws     *websocket.Conn
	events chan Event
}

// Connect opens a websocket connection as the client's user.
func (c *Client) Connect() (*Conn, error) {
	wsURL := strings.Replace(c.BaseURL, "http", "ws", 1)
	wsURL += "/ws?user=" + url.QueryEscape(c.UserID)

	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed: %s", resp.Status)
		}
		return nil, err
	}

	conn := &Conn{
		ws:     ws,
		events: make(chan Event, 64),
	}
	go conn.readLoop()

	return conn, nil
}

// Events returns the channel server pushes arrive on.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Join subscribes the connection to a room's fan-out.
func (c *Conn) Join(roomKey string) error {
	return c.write(wsFrame{Type: "join_room", Room: roomKey})
}

// Leave unsubscribes the connection from a room.
func (c *Conn) Leave(roomKey string) error {
	return c.write(wsFrame{Type: "leave_room", Room: roomKey})
}

// SendMessage sends a message into a room.
func (c *Conn) SendMessage(roomKey, content string) error {
	return c.write(wsFrame{Type: "send_message", Room: roomKey, Content: content})
}

// MarkRead resets the unread counter for a room over the live connection.
func (c *Conn) MarkRead(roomKey string) error {
	return c.write(wsFrame{Type: "mark_read", Room: roomKey})
}

// Ping sends an application-level ping; the server answers with a pong event.
func (c *Conn) Ping() error {
	return c.write(wsFrame{Type: "ping"})
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

func (c *Conn) write(frame wsFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		c.events <- ev
	}
}
