package wire

import "encoding/json"

// Frame is the JSON envelope for every message on the websocket.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventConnected               = "connected"
	EventMessageReceived         = "message_received"
	EventAIResponseChunk         = "ai_response_chunk"
	EventAIResponseComplete      = "ai_response_complete"
	EventIntentDetected          = "intent_detected"
	EventChatCreated             = "chat_created"
	EventChatsList               = "chats_list"
	EventChatData                = "chat_data"
	EventChatDeleted             = "chat_deleted"
	EventError                   = "error"
	EventSearchingCandidates     = "searching_candidates"
	EventSearchResults           = "search_results"
	EventMatchingJobs            = "matching_jobs"
	EventJobMatchResults         = "job_match_results"
	EventVoiceTranscript         = "voice_transcript"
	EventVoiceTranscriptComplete = "voice_transcript_complete"
	EventVoiceError              = "voice_error"
)

// Outbound event names.
const (
	EventAuth                    = "auth"
	EventSendMessage             = "send_message"
	EventCreateChat              = "create_chat"
	EventGetChats                = "get_chats"
	EventGetChat                 = "get_chat"
	EventDeleteChat              = "delete_chat"
	EventStartVoiceTranscription = "start_voice_transcription"
	EventAudioChunk              = "audio_chunk"
	EventStopVoiceTranscription  = "stop_voice_transcription"
)

type authRequest struct {
	Token string `json:"token"`
}

type serverError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
