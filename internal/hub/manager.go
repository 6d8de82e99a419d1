package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "showdown_ws_connections",
	Help: "Number of open websocket connections.",
})

// Envelope - формат всех сообщений, уходящих клиенту.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Client представляет одно WebSocket соединение.
type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	send chan []byte // Очередь исходящих сообщений
}

// InitialFunc возвращает событие, которое получает каждый новый клиент сразу после подключения.
type InitialFunc func() Envelope

// Manager управляет активными соединениями и рассылает им события.
type Manager struct {
	clients    map[uuid.UUID]*Client
	register   chan *Client
	unregister chan uuid.UUID
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	initial    InitialFunc
	logger     *zap.Logger
}

// NewManager создает и запускает менеджер соединений.
// initial может быть nil - тогда новым клиентам ничего не отправляется.
func NewManager(initial InitialFunc, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan uuid.UUID),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		initial:    initial,
		logger:     logger.Named("ConnectionManager"),
	}
	go m.run()
	return m
}

// run обрабатывает регистрацию, дерегистрацию и рассылку в одной горутине,
// поэтому начальный снимок и последующие события приходят клиенту по порядку.
func (m *Manager) run() {
	m.logger.Info("Connection manager started")
	for {
		select {
		case client := <-m.register:
			m.clients[client.ID] = client
			connectionsGauge.Set(float64(len(m.clients)))
			m.logger.Info("Client registered", zap.String("clientID", client.ID.String()))
			if m.initial != nil {
				if msg, err := encode(m.initial()); err != nil {
					m.logger.Error("Failed to encode initial event", zap.Error(err))
				} else {
					m.enqueue(client, msg)
				}
			}

		case id := <-m.unregister:
			if client, ok := m.clients[id]; ok {
				delete(m.clients, id)
				close(client.send)
				connectionsGauge.Set(float64(len(m.clients)))
				m.logger.Info("Client unregistered", zap.String("clientID", id.String()))
			}

		case msg := <-m.broadcast:
			for _, client := range m.clients {
				m.enqueue(client, msg)
			}

		case <-m.done:
			for id, client := range m.clients {
				delete(m.clients, id)
				close(client.send)
			}
			connectionsGauge.Set(0)
			m.logger.Info("Connection manager stopped")
			return
		}
	}
}

// enqueue не блокирует цикл менеджера: медленный клиент теряет сообщение,
// следующий снимок все равно несет полное состояние.
func (m *Manager) enqueue(client *Client, msg []byte) {
	select {
	case client.send <- msg:
	default:
		m.logger.Warn("Send queue is full, dropping message", zap.String("clientID", client.ID.String()))
	}
}

// Register добавляет клиента. После Close вызов ничего не делает.
func (m *Manager) Register(client *Client) bool {
	select {
	case m.register <- client:
		return true
	case <-m.done:
		return false
	}
}

// Unregister удаляет клиента и закрывает его очередь.
func (m *Manager) Unregister(id uuid.UUID) {
	select {
	case m.unregister <- id:
	case <-m.done:
	}
}

// Broadcast рассылает событие всем подключенным клиентам.
func (m *Manager) Broadcast(event string, payload interface{}) {
	select {
	case <-m.done:
		return
	default:
	}
	msg, err := encode(Envelope{Event: event, Payload: payload})
	if err != nil {
		m.logger.Error("Failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case m.broadcast <- msg:
	case <-m.done:
	}
}

// Close отключает всех клиентов и останавливает менеджер.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
