package collab

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// wsClient adapts one websocket connection to the room's outbound
// interface. Sends are queued on a buffered channel and written by a
// single pump goroutine; a full queue drops the frame rather than
// stalling the room.
type wsClient struct {
	conn *websocket.Conn
	send chan Envelope
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan Envelope, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *wsClient) Enqueue(env Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

func (c *wsClient) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// ServeConn runs the read loop for one connection until it closes.
// The first frame must be joinSession; everything after that is
// dispatched to the joined room. Mounted from the fiber route as
// websocket.New(func(conn){ ServeConn(hub, sessionID, conn, log) }).
func ServeConn(hub *Hub, sessionID string, conn *websocket.Conn, log *logrus.Logger) {
	client := newWSClient(conn)
	go client.writePump()

	var room *Room
	var userID string
	defer func() {
		if room != nil {
			room.Leave(userID)
		}
		client.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("session_id", sessionID).Warn("connection dropped")
			}
			return
		}

		msg, err := DecodeClientMessage(data)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"session_id": sessionID,
				"user_id":    userID,
			}).Warn("rejected malformed frame")
			continue
		}

		switch m := msg.(type) {
		case JoinSessionPayload:
			// The route-level session id wins over the payload's;
			// a client cannot join a different room than it dialed.
			if room != nil {
				room.Leave(userID)
			}
			userID = m.User.ID
			room = hub.Room(sessionID)
			room.Join(m.User, client)

		case LeaveSession:
			if room != nil {
				room.Leave(userID)
				room = nil
			}

		case MoveCursorPayload:
			if room != nil {
				room.MoveCursor(userID, m.Position)
			}

		case SetTypingPayload:
			if room != nil {
				room.SetTyping(userID, m.IsTyping)
			}

		case AddComment:
			if room != nil {
				room.AddComment(userID, m.Comment)
			}

		case UpdateComment:
			if room != nil {
				room.UpdateComment(userID, m.Comment)
			}

		case CommentRefPayload:
			if room != nil {
				room.DeleteComment(userID, m.CommentID)
			}

		case StartAnnotation:
			if room != nil {
				room.StartAnnotation(userID, m.Annotation)
			}

		case UpdateAnnotation:
			if room != nil {
				room.UpdateAnnotation(userID, m.Annotation)
			}

		case CompleteAnnotation:
			if room != nil {
				room.CompleteAnnotation(userID, m.Annotation)
			}

		case AnnotationRefPayload:
			if room != nil {
				room.DeleteAnnotation(userID, m.AnnotationID)
			}

		case SeekVideoPayload:
			if room != nil {
				room.Seek(userID, m.Time)
			}

		case PlayPauseVideoPayload:
			if room != nil {
				room.SetPlaying(userID, m.IsPlaying)
			}

		case RequestInitialState:
			if room != nil {
				room.SendInitialState(userID)
			}
		}
	}
}
