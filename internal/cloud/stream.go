// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/morganforge/kestrel-tui/internal/stream"
)

// MaxChunkSize is the maximum allowed size for a single SSE event (64KB).
const MaxChunkSize = 64 * 1024

// =============================================================================
// STREAM CALLBACKS
// =============================================================================

// Callbacks receives the decoded events of one stream.
//
// OnMessage fires once per decoded event, in receipt order. Exactly one of
// {OnClose} or {OnClose after OnError} fires per stream; OnClose is always
// the final callback.
type Callbacks struct {
	OnMessage func(ev stream.Event)
	OnError   func(err error)
	OnClose   func()
}

// CancelFunc cooperatively cancels an open stream. Calling it before the
// stream opens, during streaming, or after close is always safe; after close
// it is a no-op.
type CancelFunc func()

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses server-sent events from a response body.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event and returns its data payload.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			size += len(data)
			if size > MaxChunkSize {
				return nil, fmt.Errorf("sse event too large: %d bytes", size)
			}
			dataLines = append(dataLines, data)
		}
		// Ignore other fields (event:, id:, retry:, comments).
	}
}

// =============================================================================
// OPEN STREAM
// =============================================================================

// OpenStream opens the streaming chat endpoint and pumps decoded events into
// the callbacks from a background goroutine. The returned handle cancels the
// stream cooperatively: the transport stops invoking OnMessage and OnClose
// fires once the reader unwinds.
func (c *Client) OpenStream(ctx context.Context, req *ChatRequest, cb Callbacks) (CancelFunc, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	go c.runStream(streamCtx, bodyBytes, cb)

	var once sync.Once
	return func() {
		once.Do(cancel)
	}, nil
}

// runStream owns the full lifecycle of one stream: request, event pump and
// the terminal callback discipline.
func (c *Client) runStream(ctx context.Context, body []byte, cb Callbacks) {
	defer func() {
		if cb.OnClose != nil {
			cb.OnClose()
		}
	}()

	err := c.pumpStream(ctx, body, cb.OnMessage)
	if err != nil && cb.OnError != nil {
		// Cooperative cancellation is a normal close, not a failure.
		if !errors.Is(err, context.Canceled) {
			cb.OnError(err)
		}
	}
}

// pumpStream issues the request and forwards each decoded event.
func (c *Client) pumpStream(ctx context.Context, body []byte, onMessage func(stream.Event)) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return parseAPIError(resp.StatusCode, data)
	}

	reader := NewSSEReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read stream: %w", err)
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		ev, err := stream.ParseEvent(data)
		if err != nil {
			// Skip malformed events rather than killing the stream.
			continue
		}

		if onMessage != nil {
			onMessage(ev)
		}
	}
}
