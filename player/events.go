package player

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/somaray-cli/somaray/log"
)

// eventListener holds a persistent IPC connection and translates mpv's raw
// event stream into Transport events.
type eventListener struct {
	socketPath string
	conn       net.Conn
	emit       func(Event)
	stopCh     chan struct{}
	mu         sync.Mutex
	listening  bool
}

func newEventListener(socketPath string, emit func(Event)) *eventListener {
	return &eventListener{
		socketPath: socketPath,
		emit:       emit,
		stopCh:     make(chan struct{}),
	}
}

// Start subscribes to the properties of interest and begins the read loop.
func (el *eventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	// observe_property <id> <property>: mpv sends notifications when they change
	properties := []struct {
		id   int
		name string
	}{
		{1, "core-idle"},    // playback actually producing audio
		{2, "eof-reached"},  // stream ran out
		{3, "paused-for-cache"},
	}

	for _, prop := range properties {
		_, err := doSendCommand(el.socketPath, []interface{}{"observe_property", prop.id, prop.name})
		if err != nil {
			return fmt.Errorf("observe %s: %w", prop.name, err)
		}
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}
	el.conn = conn
	el.listening = true

	go el.readLoop()

	log.Infof("mpv event listener started on %s", el.socketPath)
	return nil
}

// Stop terminates the event listener.
func (el *eventListener) Stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}

	close(el.stopCh)
	if el.conn != nil {
		el.conn.Close()
	}
	el.listening = false
}

// readLoop continuously reads events from the persistent mpv connection.
// mpv sends newline-delimited JSON events when observed properties change.
func (el *eventListener) readLoop() {
	defer func() {
		el.mu.Lock()
		el.listening = false
		el.mu.Unlock()
	}()

	buf := make([]byte, 4096)
	var remainder []byte

	for {
		select {
		case <-el.stopCh:
			return
		default:
		}

		if err := el.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		n, err := el.conn.Read(buf)
		if err != nil {
			if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline") {
				continue // timeout is normal, keep listening
			}
			select {
			case <-el.stopCh:
			default:
				log.Warnf("event listener read error: %v", err)
			}
			return
		}

		data := append(remainder, buf[:n]...)
		remainder = nil

		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			// Last incomplete line goes to remainder for next read
			if i == len(lines)-1 && !strings.HasSuffix(string(data), "\n") {
				remainder = []byte(line)
				continue
			}

			el.processEvent(line)
		}
	}
}

// processEvent parses a single mpv event line and maps it onto the Transport
// event vocabulary. Unrecognized events are dropped.
func (el *eventListener) processEvent(line string) {
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return // Skip unparseable lines
	}

	eventType, ok := event["event"].(string)
	if !ok {
		return
	}

	switch eventType {
	case "playback-restart":
		el.emit(Event{Kind: EventStarted})

	case "property-change":
		name, _ := event["name"].(string)
		if name == "eof-reached" {
			if reached, _ := event["data"].(bool); reached {
				el.emit(Event{Kind: EventEnded, Cause: "end of stream"})
			}
		}

	case "end-file":
		reason, _ := event["reason"].(string)
		switch reason {
		case "error":
			cause, _ := event["file_error"].(string)
			if cause == "" {
				cause = "stream failed"
			}
			el.emit(Event{Kind: EventError, Cause: cause})
		case "eof":
			el.emit(Event{Kind: EventEnded, Cause: "end of stream"})
		}
		// "stop" and "redirect" are side effects of our own commands.
	}
}
