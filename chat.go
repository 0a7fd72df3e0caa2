package zetsubou

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultChatModel is used when a conversation is created without an
// explicit model.
const DefaultChatModel = "llama3.2"

// ChatService manages chat conversations and messages.
type ChatService struct {
	client *Client
}

type conversationsEnvelope struct {
	Conversations []ChatConversation `json:"conversations"`
}

type conversationEnvelope struct {
	Conversation ChatConversation `json:"conversation"`
}

type messagesEnvelope struct {
	Messages []ChatMessage `json:"messages"`
}

type messageEnvelope struct {
	Message ChatMessage `json:"message"`
}

// ListConversations returns the account's conversations, newest first.
// Limit defaults to 50.
func (s *ChatService) ListConversations(ctx context.Context, limit, offset int) ([]ChatConversation, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var resp conversationsEnvelope
	if err := s.client.get(ctx, "/api/v2/chat/conversations", q, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// CreateConversationRequest is the request body for creating a
// conversation. Model defaults to DefaultChatModel.
type CreateConversationRequest struct {
	Title        string `json:"title"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// CreateConversation starts a new conversation.
func (s *ChatService) CreateConversation(ctx context.Context, req CreateConversationRequest) (*ChatConversation, error) {
	if req.Title == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "conversation title is required"}
	}
	if req.Model == "" {
		req.Model = DefaultChatModel
	}

	var resp conversationEnvelope
	if err := s.client.post(ctx, "/api/v2/chat/conversations", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Conversation, nil
}

// GetConversation fetches one conversation. The API has no single-GET
// endpoint, so this scans a listing and reports NotFound when absent.
func (s *ChatService) GetConversation(ctx context.Context, conversationID int) (*ChatConversation, error) {
	convs, err := s.ListConversations(ctx, 1000, 0)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		if convs[i].ID == conversationID {
			return &convs[i], nil
		}
	}
	return nil, &Error{
		Kind:    ErrorKindNotFound,
		Message: fmt.Sprintf("conversation %d not found", conversationID),
	}
}

// DeleteConversation removes a conversation and its messages.
func (s *ChatService) DeleteConversation(ctx context.Context, conversationID int) error {
	var resp successEnvelope
	if err := s.client.delete(ctx, "/api/v2/chat/conversations/"+strconv.Itoa(conversationID), nil, &resp); err != nil {
		return err
	}
	return resp.check("delete conversation")
}

// Messages returns all messages in a conversation, oldest first.
func (s *ChatService) Messages(ctx context.Context, conversationID int) ([]ChatMessage, error) {
	var resp messagesEnvelope
	path := "/api/v2/chat/conversations/" + strconv.Itoa(conversationID) + "/messages"
	if err := s.client.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage posts a user message and returns the assistant's reply.
func (s *ChatService) SendMessage(ctx context.Context, conversationID int, content string) (*ChatMessage, error) {
	if content == "" {
		return nil, &Error{Kind: ErrorKindValidation, Message: "message content is required"}
	}

	var resp messageEnvelope
	path := "/api/v2/chat/conversations/" + strconv.Itoa(conversationID) + "/messages"
	if err := s.client.post(ctx, path, sendMessageRequest{Content: content}, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// Export formats supported by Export.
const (
	ExportFormatJSON     = "json"
	ExportFormatMarkdown = "md"
)

// Export returns the conversation rendered in the given format: raw JSON
// bytes for "json", markdown text for "md".
func (s *ChatService) Export(ctx context.Context, conversationID int, format string) ([]byte, error) {
	if format != ExportFormatJSON && format != ExportFormatMarkdown {
		return nil, &Error{
			Kind:    ErrorKindValidation,
			Message: fmt.Sprintf("unsupported export format %q (want %s or %s)", format, ExportFormatJSON, ExportFormatMarkdown),
		}
	}

	accept := "application/json"
	if format == ExportFormatMarkdown {
		accept = "text/markdown"
	}
	q := url.Values{}
	q.Set("format", format)

	_, body, err := s.client.do(ctx, &request{
		method: http.MethodGet,
		path:   "/api/v2/chat/conversations/" + strconv.Itoa(conversationID) + "/export",
		query:  q,
		accept: accept,
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// AvailableModels returns the chat models the service offers. The API
// exposes no model catalog endpoint; the set is fixed per release.
func (s *ChatService) AvailableModels() []string {
	return []string{DefaultChatModel, "qwen2.5-vl", "glm-4.6:cloud", "auto"}
}

// CreateAndSend creates a conversation and sends its first message,
// returning both the conversation and the assistant's reply.
func (s *ChatService) CreateAndSend(ctx context.Context, title, model, content string) (*ChatConversation, *ChatMessage, error) {
	conv, err := s.CreateConversation(ctx, CreateConversationRequest{Title: title, Model: model})
	if err != nil {
		return nil, nil, err
	}
	msg, err := s.SendMessage(ctx, conv.ID, content)
	if err != nil {
		return conv, nil, err
	}
	return conv, msg, nil
}
