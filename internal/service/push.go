package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// messageSender is the part of *messaging.Client the push channel needs.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type firebasePushSender struct {
	client messageSender
}

// NewFirebasePushSender initializes Firebase Cloud Messaging. An empty
// credentials path falls back to application default credentials.
func NewFirebasePushSender(ctx context.Context, credentialsFile string) (PushSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase messaging: %w", err)
	}
	return &firebasePushSender{client: client}, nil
}

func (s *firebasePushSender) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("failed to push to topic %s: %w", topic, err)
	}
	return nil
}
