// Package sse implements a small server-sent-events broker used to
// stream index lifecycle events to operators (GET /events).
package sse

import (
	"fmt"
	"net/http"
	"sync"
)

const (
	maxClientsPerTopic = 100
	maxGlobalClients   = 1000

	// TopicIndex recebe eventos do ciclo de vida do índice
	// (index_published).
	TopicIndex = "index"
)

type Client struct {
	Events chan string
}

type Broker struct {
	clients      map[string]map[*Client]bool
	mutex        sync.RWMutex
	closed       bool
	totalClients int
}

func NewBroker() *Broker {
	return &Broker{
		clients: make(map[string]map[*Client]bool),
	}
}

func (b *Broker) Subscribe(topic string) (*Client, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is shut down")
	}

	if b.totalClients >= maxGlobalClients {
		return nil, fmt.Errorf("max global connections reached")
	}

	if b.clients[topic] == nil {
		b.clients[topic] = make(map[*Client]bool)
	}

	if len(b.clients[topic]) >= maxClientsPerTopic {
		return nil, fmt.Errorf("max connections for topic reached")
	}

	client := &Client{
		Events: make(chan string, 100),
	}

	b.clients[topic][client] = true
	b.totalClients++
	return client, nil
}

func (b *Broker) Unsubscribe(client *Client, topic string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if clients, ok := b.clients[topic]; ok {
		if !clients[client] {
			return
		}
		delete(clients, client)
		close(client.Events)
		if len(clients) == 0 {
			delete(b.clients, topic)
		}
		b.totalClients--
	}
}

// Publish entrega o evento para todos os inscritos no tópico. Cliente
// com buffer cheio perde o evento em vez de travar o publicador.
func (b *Broker) Publish(topic, event, data string) {
	message := fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)

	b.mutex.RLock()
	defer b.mutex.RUnlock()

	if b.closed {
		return
	}

	for client := range b.clients[topic] {
		select {
		case client.Events <- message:
		default:
		}
	}
}

func (b *Broker) Shutdown() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for topic, clients := range b.clients {
		for client := range clients {
			close(client.Events)
		}
		delete(b.clients, topic)
	}
	b.totalClients = 0
}

// Handler serve a conexão SSE de um tópico fixo.
func (b *Broker) Handler(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		client, err := b.Subscribe(topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer b.Unsubscribe(client, topic)

		fmt.Fprintf(w, ": ok\n\n")
		flusher.Flush()

		for {
			select {
			case message, ok := <-client.Events:
				if !ok {
					return
				}
				fmt.Fprint(w, message)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}
