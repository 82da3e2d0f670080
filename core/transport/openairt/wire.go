package openairt

// Client to server command envelope. Only the fields relevant to the sent
// command type are populated.
type wireCommand struct {
	Type     string        `json:"type"`
	Item     *wireItem     `json:"item,omitempty"`
	Response *wireResponse `json:"response,omitempty"`
	Session  *wireSession  `json:"session,omitempty"`
	Audio    string        `json:"audio,omitempty"`
}

type wireItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []wireContent `json:"content,omitempty"`
}

type wireContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type wireResponse struct {
	Instructions string            `json:"instructions,omitempty"`
	Conversation string            `json:"conversation,omitempty"`
	Modalities   []string          `json:"modalities,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type wireSession struct {
	Instructions string   `json:"instructions,omitempty"`
	Modalities   []string `json:"modalities,omitempty"`
}

// Server to client event envelope. The upstream multiplexes every event kind
// over one message shape; absent fields decode to zero values.
type wireServerEvent struct {
	Type string `json:"type"`

	Session *struct {
		ID string `json:"id"`
	} `json:"session,omitempty"`

	Response *struct {
		ID       string            `json:"id"`
		Metadata map[string]string `json:"metadata,omitempty"`
		Output   []wireServerItem  `json:"output,omitempty"`
		Usage    *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage,omitempty"`
	} `json:"response,omitempty"`

	Item *wireServerItem `json:"item,omitempty"`

	ResponseID string `json:"response_id,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Delta      string `json:"delta,omitempty"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Audio      string `json:"audio,omitempty"`

	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type wireServerItem struct {
	ID      string `json:"id"`
	Role    string `json:"role,omitempty"`
	Content []struct {
		Type       string `json:"type"`
		Text       string `json:"text,omitempty"`
		Transcript string `json:"transcript,omitempty"`
	} `json:"content,omitempty"`
}
