package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Sender delivers one message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// FCMSender sends through the FCM HTTP v1 API.
type FCMSender struct {
	service *fcm.Service
	parent  string
}

// NewFCMSender creates a sender for projectID. opts are passed to the
// Google client, e.g. option.WithCredentialsFile.
func NewFCMSender(ctx context.Context, projectID string, opts ...option.ClientOption) (*FCMSender, error) {
	if projectID == "" {
		return nil, fmt.Errorf("FCM project id is required")
	}
	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM service: %w", err)
	}
	return &FCMSender{service: svc, parent: "projects/" + projectID}, nil
}

// Send implements Sender.
func (s *FCMSender) Send(ctx context.Context, msg Message) (string, error) {
	wire, err := toFCM(msg)
	if err != nil {
		return "", err
	}
	resp, err := s.service.Projects.Messages.Send(s.parent, &fcm.SendMessageRequest{Message: wire}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send to %s: %w", msg.Topic, err)
	}
	return resp.Name, nil
}

type apsPayload struct {
	Aps struct {
		Sound    string `json:"sound,omitempty"`
		Badge    int    `json:"badge,omitempty"`
		Category string `json:"category,omitempty"`
	} `json:"aps"`
}

func toFCM(msg Message) (*fcm.Message, error) {
	out := &fcm.Message{
		Topic: msg.Topic,
		Data:  msg.Data,
	}
	if n := msg.Notification; n != nil {
		out.Notification = &fcm.Notification{Title: n.Title, Body: n.Body, Image: n.Image}
	}
	if a := msg.Android; a != nil {
		out.Android = &fcm.AndroidConfig{
			Priority: a.Priority,
			Notification: &fcm.AndroidNotification{
				Icon:  a.Icon,
				Color: a.Color,
				Sound: a.Sound,
			},
		}
	}
	if a := msg.APNs; a != nil {
		var p apsPayload
		p.Aps.Sound = a.Sound
		p.Aps.Badge = a.Badge
		p.Aps.Category = a.Category
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to encode APNs payload: %w", err)
		}
		out.Apns = &fcm.ApnsConfig{Payload: googleapi.RawMessage(raw)}
	}
	return out, nil
}
