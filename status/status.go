package status

import (
	"encoding/json"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	INFO = iota
	ERROR
	PROGRESS
)

type Message struct {
	Request  string
	Message  string
	Time     time.Time
	Type     int
	Progress float32
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		unregisterClient(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump drains control frames and notices the peer going away.
func (c *client) readPump() {
	defer func() {
		unregisterClient(c)
		close(c.send)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// NewClient subscribes a websocket connection to status messages and
// immediately replays the last one.
func NewClient(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 32)}
	globalLock.Lock()
	broadcastList[c] = true
	if lastMessage != nil {
		c.send <- lastMessage
	}
	globalLock.Unlock()
	go c.writePump()
	go c.readPump()
}

var (
	broadcastList = make(map[*client]bool)
	globalLock    sync.Mutex
	lastMessage   []byte
)

func unregisterClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	delete(broadcastList, c)
}

func broadcast(m *Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("[status] marshal error: %v", err)
		return
	}
	globalLock.Lock()
	defer globalLock.Unlock()
	lastMessage = data
	for c := range broadcastList {
		select {
		case c.send <- data:
		default:
			// slow reader, drop
		}
	}
}

func Status(request, msg string, _type int, progress float32) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	broadcast(&Message{
		Request:  request,
		Message:  msg,
		Time:     time.Now(),
		Type:     _type,
		Progress: progress})
}

func Info(request, msg string) {
	Status(request, msg, INFO, 0.0)
}

func Error(request, msg string) {
	Status(request, msg, ERROR, 0.0)
}

func Progress(request string, progress float32, msg string) {
	Status(request, msg, PROGRESS, progress)
}

// Last returns the most recent message, if any.
func Last() (*Message, bool) {
	globalLock.Lock()
	data := lastMessage
	globalLock.Unlock()
	if data == nil {
		return nil, false
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return &m, true
}
