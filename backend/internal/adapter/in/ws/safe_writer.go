package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait время на запись одного кадра
const writeWait = 5 * time.Second

// SafeWriter обеспечивает потокобезопасную запись в WebSocket.
// Ответы агенту и рассылка из цикла пишут в одно соединение.
type SafeWriter struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewSafeWriter создает новый экземпляр SafeWriter
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{conn: conn}
}

// WriteText отправляет текстовый кадр
func (w *SafeWriter) WriteText(text string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// WriteJSON отправляет значение как JSON
func (w *SafeWriter) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// WritePing отправляет управляющий кадр ping
func (w *SafeWriter) WritePing() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close закрывает соединение WebSocket
func (w *SafeWriter) Close() error {
	return w.conn.Close()
}
