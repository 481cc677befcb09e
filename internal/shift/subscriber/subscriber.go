package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	taskdomain "shifttask-backend/internal/task/domain"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Subscriber receives shift events from a Pub/Sub topic
type Subscriber struct {
	client    *pubsub.Client
	handler   *EventHandler
	topicName string
	subName   string
}

func NewSubscriber(ctx context.Context, projectID, topicName, credentialsFile string, handler *EventHandler) (*Subscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Subscriber{
		client:    client,
		handler:   handler,
		topicName: topicName,
		subName:   topicName + "-task-engine", // Convention: topic-consumer
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) {
	log.Printf("[ShiftSubscriber] Starting with topic: %s, subscription: %s", s.topicName, s.subName)

	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		log.Printf("[ShiftSubscriber] %v", err)
		return
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		err := s.handler.HandleEvent(ctx, msg.Data)
		switch {
		case err == nil:
			msg.Ack()
		case errors.Is(err, taskdomain.ErrInvalidInput):
			// Redelivery cannot fix a bad payload
			log.Printf("[ShiftSubscriber] Dropping message %s: %v", msg.ID, err)
			msg.Ack()
		default:
			log.Printf("[ShiftSubscriber] Error handling message %s, will retry: %v", msg.ID, err)
			msg.Nack()
		}
	})
	if err != nil {
		log.Printf("[ShiftSubscriber] Error receiving messages: %v", err)
	}
}

func (s *Subscriber) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription existence: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.client.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic existence: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist, cannot create subscription", s.topicName)
	}

	sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	log.Printf("[ShiftSubscriber] Created subscription: %s", s.subName)
	return sub, nil
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}
