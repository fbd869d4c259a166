package talentwire

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/stream"
	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

// Chat is a conversation session. The id is server-assigned and never
// changes once set; message state is server-authoritative and refreshed
// on demand.
type Chat struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Messages  []stream.Message
}

// ChatSummary is one row of the chat list.
type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateChatRequest configures a new chat. All fields are optional.
type CreateChatRequest struct {
	Title        string `json:"title,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Delta is an incremental streaming update for a chat.
type Delta struct {
	ChatID  string
	Content string
}

type sendMessageRequest struct {
	ChatID      string  `json:"chatId"`
	Content     string  `json:"content"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// SendOption tunes one outbound message.
type SendOption func(*sendMessageRequest)

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) SendOption {
	return func(r *sendMessageRequest) {
		r.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) SendOption {
	return func(r *sendMessageRequest) {
		r.Temperature = t
	}
}

// ChatService manages chat sessions and assembles streamed responses.
// Inbound events are applied on the connection read loop; observers run
// on that loop and must not block.
type ChatService struct {
	bus     Bus
	logger  *slog.Logger
	timeout time.Duration

	assembler *stream.Assembler
	tracker   *stream.IntentTracker

	mu         sync.Mutex
	chats      map[string]*Chat
	active     string
	statusStop chan struct{}

	deltas   observers[Delta]
	messages observers[stream.Message]
	status   observers[string]
	errs     observers[error]

	unsubs []func()
}

func newChatService(bus Bus, logger *slog.Logger, timeout time.Duration) *ChatService {
	s := &ChatService{
		bus:     bus,
		logger:  logger,
		timeout: timeout,
		tracker: stream.NewIntentTracker(),
		chats:   make(map[string]*Chat),
	}
	s.assembler = stream.NewAssembler(
		func(chatID, content string) {
			s.deltas.notify(Delta{ChatID: chatID, Content: content})
		},
		nil,
	)

	s.unsubs = []func(){
		bus.Subscribe(wire.EventMessageReceived, s.onMessageReceived),
		bus.Subscribe(wire.EventAIResponseChunk, s.onChunk),
		bus.Subscribe(wire.EventAIResponseComplete, s.onComplete),
		bus.Subscribe(wire.EventIntentDetected, s.onIntent),
		bus.Subscribe(wire.EventChatCreated, s.onChatCreated),
		bus.Subscribe(wire.EventChatsList, s.onChatsList),
		bus.Subscribe(wire.EventChatData, s.onChatData),
		bus.Subscribe(wire.EventChatDeleted, s.onChatDeleted),
		bus.Subscribe(wire.EventError, s.onServerError),
	}
	return s
}

// OnDelta registers an observer for incremental streaming content.
func (s *ChatService) OnDelta(fn func(Delta)) func() {
	return s.deltas.add(fn)
}

// OnMessage registers an observer for finalized messages.
func (s *ChatService) OnMessage(fn func(stream.Message)) func() {
	return s.messages.add(fn)
}

// OnStatus registers an observer for loading-status text. An empty
// string means idle.
func (s *ChatService) OnStatus(fn func(string)) func() {
	return s.status.add(fn)
}

// OnError registers an observer for server-reported failures.
func (s *ChatService) OnError(fn func(error)) func() {
	return s.errs.add(fn)
}

// Active returns the chat id inbound streaming events apply to.
func (s *ChatService) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive switches the chat inbound streaming events apply to.
func (s *ChatService) SetActive(chatID string) {
	s.mu.Lock()
	s.active = chatID
	s.mu.Unlock()
}

// Status returns the current loading-status line, or "" when idle.
func (s *ChatService) Status() string {
	return s.tracker.Status()
}

// Create opens a new chat and waits for the server acknowledgement.
func (s *ChatService) Create(ctx context.Context, req CreateChatRequest) (Chat, error) {
	ctx, cancel := withDefaultTimeout(ctx, s.timeout)
	defer cancel()

	data, err := awaitEvent(ctx, s.bus, wire.EventChatCreated, nil, func() error {
		return s.bus.Emit(wire.EventCreateChat, req)
	})
	if err != nil {
		return Chat{}, err
	}
	var ev struct {
		ChatID string `json:"chatId"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(data, &ev); err != nil || ev.ChatID == "" {
		return Chat{}, core.NewProtocolError("malformed chat_created payload", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if chat := s.chats[ev.ChatID]; chat != nil {
		return *chat, nil
	}
	return Chat{ID: ev.ChatID, Title: ev.Title}, nil
}

// List fetches the chat list.
func (s *ChatService) List(ctx context.Context) ([]ChatSummary, error) {
	ctx, cancel := withDefaultTimeout(ctx, s.timeout)
	defer cancel()

	data, err := awaitEvent(ctx, s.bus, wire.EventChatsList, nil, func() error {
		return s.bus.Emit(wire.EventGetChats, struct{}{})
	})
	if err != nil {
		return nil, err
	}
	var ev struct {
		Chats []ChatSummary `json:"chats"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, core.NewProtocolError("malformed chats_list payload", err)
	}
	return ev.Chats, nil
}

// Get fetches one chat with its full message log.
func (s *ChatService) Get(ctx context.Context, chatID string) (Chat, error) {
	if chatID == "" {
		return Chat{}, core.NewInvalidRequestError("chat id is required")
	}
	ctx, cancel := withDefaultTimeout(ctx, s.timeout)
	defer cancel()

	match := func(data json.RawMessage) bool {
		var probe struct {
			ID string `json:"id"`
		}
		return json.Unmarshal(data, &probe) == nil && probe.ID == chatID
	}
	if _, err := awaitEvent(ctx, s.bus, wire.EventChatData, match, func() error {
		return s.bus.Emit(wire.EventGetChat, map[string]string{"chatId": chatID})
	}); err != nil {
		return Chat{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if chat := s.chats[chatID]; chat != nil {
		return *chat, nil
	}
	return Chat{ID: chatID}, nil
}

// Delete removes a chat and drops any in-flight streaming state for it.
func (s *ChatService) Delete(ctx context.Context, chatID string) error {
	if chatID == "" {
		return core.NewInvalidRequestError("chat id is required")
	}
	ctx, cancel := withDefaultTimeout(ctx, s.timeout)
	defer cancel()

	match := func(data json.RawMessage) bool {
		var probe struct {
			ID string `json:"id"`
		}
		return json.Unmarshal(data, &probe) == nil && probe.ID == chatID
	}
	_, err := awaitEvent(ctx, s.bus, wire.EventChatDeleted, match, func() error {
		return s.bus.Emit(wire.EventDeleteChat, map[string]string{"chatId": chatID})
	})
	return err
}

// Send posts a user message and begins assembling the streamed response.
// The finalized response arrives through the message observers.
func (s *ChatService) Send(chatID, content string, opts ...SendOption) error {
	if chatID == "" {
		return core.NewInvalidRequestError("chat id is required")
	}
	if content == "" {
		return core.NewInvalidRequestError("message content is empty")
	}
	req := sendMessageRequest{ChatID: chatID, Content: content}
	for _, opt := range opts {
		opt(&req)
	}

	s.SetActive(chatID)
	s.assembler.Begin(chatID)
	if err := s.bus.Emit(wire.EventSendMessage, req); err != nil {
		s.assembler.Abort(chatID)
		return err
	}

	msg := stream.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      stream.RoleUser,
		Content:   content,
		Kind:      stream.KindPlain,
		CreatedAt: time.Now(),
	}
	s.appendMessage(msg)
	s.messages.notify(msg)
	s.startStatusLoop()
	return nil
}

func (s *ChatService) onMessageReceived(data json.RawMessage) {
	var ev struct {
		ID      string `json:"id"`
		ChatID  string `json:"chatId"`
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &ev); err != nil || ev.Content == "" {
		s.logger.Warn("dropping malformed message_received", "error", err)
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.ChatID == "" {
		ev.ChatID = s.Active()
	}
	role := stream.Role(ev.Role)
	if role != stream.RoleAssistant {
		role = stream.RoleUser
	}
	msg := stream.Message{
		ID:        ev.ID,
		ChatID:    ev.ChatID,
		Role:      role,
		Content:   ev.Content,
		Kind:      stream.KindPlain,
		CreatedAt: time.Now(),
	}
	s.appendMessage(msg)
	s.messages.notify(msg)
}

func (s *ChatService) onChunk(data json.RawMessage) {
	var ev struct {
		Chunk   string `json:"chunk"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("dropping malformed ai_response_chunk", "error", err)
		return
	}
	chunk := ev.Chunk
	if chunk == "" {
		chunk = ev.Content
	}
	active := s.Active()
	if active == "" {
		s.logger.Debug("response chunk with no active chat")
		return
	}
	s.assembler.AppendChunk(active, chunk)
	s.startStatusLoop()
}

func (s *ChatService) onComplete(data json.RawMessage) {
	var ev struct {
		FullResponse string `json:"fullResponse"`
		Timestamp    string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("dropping malformed ai_response_complete", "error", err)
		return
	}
	active := s.Active()
	if active == "" {
		return
	}
	at, _ := time.Parse(time.RFC3339, ev.Timestamp)
	msg, ok := s.assembler.Complete(active, ev.FullResponse, at)
	if !ok {
		return
	}
	s.appendMessage(msg)
	s.messages.notify(msg)
	s.tracker.Clear()
	s.stopStatusLoop()
	s.status.notify("")
}

func (s *ChatService) onIntent(data json.RawMessage) {
	var ev struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal(data, &ev); err != nil || ev.Intent == "" {
		s.logger.Warn("dropping malformed intent_detected", "error", err)
		return
	}
	s.tracker.SetIntent(stream.Intent(ev.Intent))
	s.status.notify(s.tracker.Status())
}

func (s *ChatService) onChatCreated(data json.RawMessage) {
	var ev struct {
		ChatID    string    `json:"chatId"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &ev); err != nil || ev.ChatID == "" {
		s.logger.Warn("dropping malformed chat_created", "error", err)
		return
	}
	s.mu.Lock()
	if existing := s.chats[ev.ChatID]; existing == nil {
		s.chats[ev.ChatID] = &Chat{ID: ev.ChatID, Title: ev.Title, CreatedAt: ev.CreatedAt}
	}
	if s.active == "" {
		s.active = ev.ChatID
	}
	s.mu.Unlock()
}

func (s *ChatService) onChatsList(data json.RawMessage) {
	var ev struct {
		Chats []ChatSummary `json:"chats"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	s.mu.Lock()
	for _, c := range ev.Chats {
		if existing := s.chats[c.ID]; existing != nil {
			existing.Title = c.Title
		} else {
			s.chats[c.ID] = &Chat{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt}
		}
	}
	s.mu.Unlock()
}

func (s *ChatService) onChatData(data json.RawMessage) {
	var ev struct {
		ID       string           `json:"id"`
		Title    string           `json:"title"`
		Messages []stream.Message `json:"messages"`
	}
	if err := json.Unmarshal(data, &ev); err != nil || ev.ID == "" {
		s.logger.Warn("dropping malformed chat_data", "error", err)
		return
	}
	s.mu.Lock()
	chat := s.chats[ev.ID]
	if chat == nil {
		chat = &Chat{ID: ev.ID}
		s.chats[ev.ID] = chat
	}
	if ev.Title != "" {
		chat.Title = ev.Title
	}
	chat.Messages = ev.Messages
	s.mu.Unlock()
}

func (s *ChatService) onChatDeleted(data json.RawMessage) {
	var ev struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &ev); err != nil || ev.ID == "" {
		return
	}
	s.assembler.Abort(ev.ID)
	s.mu.Lock()
	delete(s.chats, ev.ID)
	if s.active == ev.ID {
		s.active = ""
	}
	s.mu.Unlock()
}

// onServerError renders a business failure as the response content, so
// the user sees what went wrong where the answer would have appeared.
func (s *ChatService) onServerError(data json.RawMessage) {
	var se struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	_ = json.Unmarshal(data, &se)
	if se.Message == "" {
		se.Message = "request failed"
	}

	active := s.Active()
	if active != "" && s.assembler.Pending(active) {
		s.assembler.Abort(active)
		msg := stream.Message{
			ID:        uuid.New().String(),
			ChatID:    active,
			Role:      stream.RoleAssistant,
			Content:   se.Message,
			Kind:      stream.KindPlain,
			CreatedAt: time.Now(),
		}
		s.appendMessage(msg)
		s.messages.notify(msg)
		s.tracker.Clear()
		s.stopStatusLoop()
		s.status.notify("")
	}
	s.errs.notify(core.NewApplicationError(se.Message, se.Code))
}

func (s *ChatService) appendMessage(msg stream.Message) {
	s.mu.Lock()
	chat := s.chats[msg.ChatID]
	if chat == nil {
		chat = &Chat{ID: msg.ChatID}
		s.chats[msg.ChatID] = chat
	}
	chat.Messages = append(chat.Messages, msg)
	s.mu.Unlock()
}

// startStatusLoop advances the status rotation while a response streams.
func (s *ChatService) startStatusLoop() {
	s.mu.Lock()
	if s.statusStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.statusStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(stream.StatusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tracker.Tick()
				s.status.notify(s.tracker.Status())
			}
		}
	}()
}

func (s *ChatService) stopStatusLoop() {
	s.mu.Lock()
	if s.statusStop != nil {
		close(s.statusStop)
		s.statusStop = nil
	}
	s.mu.Unlock()
}

func (s *ChatService) shutdown() {
	s.stopStatusLoop()
	for _, unsub := range s.unsubs {
		unsub()
	}
}
