package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// ipcRequest is the newline-delimited JSON envelope mpv expects on its socket.
type ipcRequest struct {
	Command []interface{} `json:"command"`
}

// ipcResponse carries mpv's reply; Error is "success" on the happy path.
type ipcResponse struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

const (
	ipcAttempts     = 3
	ipcRetryDelay   = 100 * time.Millisecond
	ipcReadDeadline = 1 * time.Second
)

// send issues a named mpv command with its arguments, retrying transient
// connection errors. Cancelling ctx gives up between attempts.
func (m *MPV) send(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	command := append([]interface{}{name}, args...)

	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error

	for attempt := 0; attempt < ipcAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(ipcRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := doSendCommand(m.socketPath, command)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("mpv %q failed after %d attempts: %w", name, ipcAttempts, lastErr)
}

// doSendCommand performs a single request/response exchange on the socket.
func doSendCommand(socketPath string, command []interface{}) (interface{}, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(ipcRequest{Command: command}); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(ipcReadDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	// mpv interleaves asynchronous event lines with command replies on the
	// same connection; skip anything that is not a reply.
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var resp ipcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		if resp.Error == "" {
			continue
		}
		if resp.Error != "success" {
			return nil, fmt.Errorf("mpv error: %s", resp.Error)
		}
		return resp.Data, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, fmt.Errorf("connection closed before reply")
}
