package models

import "time"

// Utterance is one recognized unit of user speech or text, created per
// inbound speech_recognized event and discarded once dispatch completes.
type Utterance struct {
	Text       string
	ReceivedAt time.Time
}

// ResponseEnvelope is the terminal reply for one dispatched utterance.
// Redirect is set only when the utterance asked to open a resource, and
// ShouldContinueListening tells the client whether to keep the mic open.
type ResponseEnvelope struct {
	Message                 string `json:"message"`
	Redirect                string `json:"redirect,omitempty"`
	ShouldContinueListening bool   `json:"shouldContinueListening"`
	IsRateLimited           bool   `json:"isRateLimited"`
}

// Client -> server event types.
const (
	EventStartInteraction = "start_interaction"
	EventSpeechRecognized = "speech_recognized"
	EventSubmitAuthCode   = "submit_auth_code"
)

// Server -> client event types.
const (
	EventConnected     = "connected"
	EventStatusUpdate  = "status_update"
	EventUserSpeech    = "user_speech"
	EventFinalResponse = "final_response"
	EventStreamChunk   = "stream_response_chunk"
	EventStreamEnd     = "stream_end"
)

// ClientEvent is the inbound wire format. Fields beyond Type are
// populated depending on the event.
type ClientEvent struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
	Code  string `json:"code,omitempty"`
}

// ServerEvent is the outbound wire format. The two booleans are
// pointers so they only appear on terminal events.
type ServerEvent struct {
	Type                    string `json:"type"`
	SessionID               string `json:"session_id,omitempty"`
	Message                 string `json:"message,omitempty"`
	Chunk                   string `json:"chunk,omitempty"`
	FullMessage             string `json:"fullMessage,omitempty"`
	Redirect                string `json:"redirect,omitempty"`
	ShouldContinueListening *bool  `json:"shouldContinueListening,omitempty"`
	IsRateLimited           *bool  `json:"isRateLimited,omitempty"`
}

func StatusUpdate(message string) ServerEvent {
	return ServerEvent{Type: EventStatusUpdate, Message: message}
}

func UserSpeech(message string) ServerEvent {
	return ServerEvent{Type: EventUserSpeech, Message: message}
}

func StreamChunk(chunk string) ServerEvent {
	return ServerEvent{Type: EventStreamChunk, Chunk: chunk}
}

// FinalResponse flattens the envelope into a final_response event.
func FinalResponse(env ResponseEnvelope) ServerEvent {
	return ServerEvent{
		Type:                    EventFinalResponse,
		Message:                 env.Message,
		Redirect:                env.Redirect,
		ShouldContinueListening: &env.ShouldContinueListening,
		IsRateLimited:           &env.IsRateLimited,
	}
}

// StreamEnd is the terminal event for a streamed reply; FullMessage is
// the aggregate of all chunks emitted before it.
func StreamEnd(env ResponseEnvelope) ServerEvent {
	return ServerEvent{
		Type:                    EventStreamEnd,
		FullMessage:             env.Message,
		ShouldContinueListening: &env.ShouldContinueListening,
		IsRateLimited:           &env.IsRateLimited,
	}
}
