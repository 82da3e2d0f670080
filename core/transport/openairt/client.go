// Package openairt implements the transport session over a realtime
// websocket wire protocol compatible with OpenAI-style realtime agents.
package openairt

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbornik/coaching-core/core/events"
	"github.com/tbornik/coaching-core/core/transport"
)

const defaultHost = "api.openai.com"
const defaultPath = "/v1/realtime"

// Client is a websocket-backed transport session. One Client serves one
// session; create a new one per connect.
type Client struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	sink    transport.EventSink
	options clientOptions

	closeOnce sync.Once
	closed    chan struct{}
}

type clientOptions struct {
	host  string
	path  string
	model string
}

type ClientOption func(*clientOptions)

// WithEndpoint overrides the websocket host and path, for gateways that
// proxy the upstream.
func WithEndpoint(host, path string) ClientOption {
	return func(o *clientOptions) {
		o.host = host
		o.path = path
	}
}

// WithModel selects the upstream realtime model.
func WithModel(model string) ClientOption {
	return func(o *clientOptions) { o.model = model }
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		sink:   func(events.Event) {},
		closed: make(chan struct{}),
		options: clientOptions{
			host: defaultHost,
			path: defaultPath,
		},
	}
	for _, opt := range opts {
		opt(&client.options)
	}
	return client
}

func (c *Client) Subscribe(sink transport.EventSink) {
	if sink != nil {
		c.sink = sink
	}
}

func (c *Client) Connect(ctx context.Context, credential transport.Credential) error {
	urlValues := url.Values{}
	if c.options.model != "" {
		urlValues.Set("model", c.options.model)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(
		ctx,
		(&url.URL{
			Scheme:   "wss",
			Host:     c.options.host,
			Path:     c.options.path,
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"Bearer " + credential.Token}},
	)
	if err != nil {
		recordedErr := fmt.Errorf("failed to open socket connection to upstream: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return recordedErr
	}
	c.ws = conn

	go c.processIncomingMessages()

	return nil
}

func (c *Client) SendMessage(role events.Role, text string) error {
	return c.writeJSON(wireCommand{
		Type: "conversation.item.create",
		Item: &wireItem{
			Type: "message",
			Role: string(role),
			Content: []wireContent{
				{Type: "input_text", Text: text},
			},
		},
	})
}

func (c *Client) CreateResponse(request transport.ResponseRequest) error {
	response := &wireResponse{
		Instructions: request.Instructions,
		Conversation: request.Conversation,
		Modalities:   modalityStrings(request.Modalities),
	}
	if request.Purpose != "" {
		response.Metadata = map[string]string{"purpose": request.Purpose}
	}
	return c.writeJSON(wireCommand{Type: "response.create", Response: response})
}

func (c *Client) UpdateConfig(config transport.SessionConfig) error {
	return c.writeJSON(wireCommand{
		Type: "session.update",
		Session: &wireSession{
			Instructions: config.Instructions,
			Modalities:   modalityStrings(config.OutputModalities),
		},
	})
}

// SendAudio uploads one captured microphone frame.
func (c *Client) SendAudio(audio []byte) error {
	return c.writeJSON(wireCommand{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
}

func (c *Client) Mute(muted bool) error {
	commandType := "input_audio_buffer.resume"
	if muted {
		commandType = "input_audio_buffer.pause"
	}
	return c.writeJSON(wireCommand{Type: commandType})
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.ws == nil {
			return
		}
		deadline := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if writeErr := c.writeControl(deadline); writeErr != nil {
			log.Printf("Failed to send websocket close message: %v", writeErr)
		}
		err = c.ws.Close()
	})
	return err
}

func (c *Client) writeJSON(command wireCommand) error {
	if c.ws == nil {
		return fmt.Errorf("transport not connected")
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if err := c.ws.WriteJSON(command); err != nil {
		return fmt.Errorf("failed to send %s: %w", command.Type, err)
	}
	return nil
}

func (c *Client) writeControl(payload []byte) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.ws.WriteMessage(websocket.CloseMessage, payload)
}

func (c *Client) processIncomingMessages() {
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				c.sink(events.NewTransportClosed("closed by client"))
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.sink(events.NewTransportClosed(err.Error()))
				} else {
					c.sink(events.NewTransportFailed(err))
				}
			}
			return
		}

		event, err := decodeServerEvent(msg)
		if err != nil {
			log.Printf("Skipping undecodable upstream event: %v", err)
			continue
		}
		if event != nil {
			c.sink(event)
		}
	}
}

func modalityStrings(modalities []transport.Modality) []string {
	if len(modalities) == 0 {
		return nil
	}
	out := make([]string, 0, len(modalities))
	for _, modality := range modalities {
		out = append(out, string(modality))
	}
	return out
}
