package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"PairLink/internal/utils"
)

// FallbackAnswer is emitted whenever the gateway cannot produce a real
// answer. The relay path never surfaces an assistant failure.
const FallbackAnswer = "Sorry, I couldn't process your request at the moment."

const maxOutputTokens = 100

// Gateway talks to the Gemini generateContent endpoint. Conversation history
// is kept per connection id, so context follows the participant, not the
// room, and is isolated between participants.
type Gateway struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client

	mu       sync.Mutex
	sessions map[string][]turn // connection id -> alternating user/model turns
}

type turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func NewGateway(apiKey, model, endpoint string, timeout time.Duration) *Gateway {
	return &Gateway{
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		sessions: make(map[string][]turn),
	}
}

// Ask sends the question with the participant's accumulated history and
// returns the answer text. Any failure — transport, HTTP status, empty
// response — yields FallbackAnswer and leaves the history untouched.
func (g *Gateway) Ask(ctx context.Context, userID, question string) string {
	g.mu.Lock()
	history := append([]turn(nil), g.sessions[userID]...)
	g.mu.Unlock()

	answer, err := g.generate(ctx, append(history, turn{Role: "user", Text: question}))
	if err != nil {
		utils.Error.Printf("assistant for %s: %v", userID, err)
		return FallbackAnswer
	}

	g.mu.Lock()
	g.sessions[userID] = append(g.sessions[userID],
		turn{Role: "user", Text: question},
		turn{Role: "model", Text: answer},
	)
	g.mu.Unlock()
	return answer
}

// Forget drops the participant's conversation context. Called on disconnect;
// connection ids are never reused, so context cannot leak across sessions.
func (g *Gateway) Forget(userID string) {
	g.mu.Lock()
	delete(g.sessions, userID)
	g.mu.Unlock()
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig genConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gateway) generate(ctx context.Context, turns []turn) (string, error) {
	reqBody := generateRequest{
		GenerationConfig: genConfig{MaxOutputTokens: maxOutputTokens},
	}
	for _, t := range turns {
		reqBody.Contents = append(reqBody.Contents, content{
			Role:  t.Role,
			Parts: []part{{Text: t.Text}},
		})
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	apiURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("assistant endpoint returned %s", resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("assistant returned no candidates")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("assistant returned empty answer")
	}
	return sb.String(), nil
}
