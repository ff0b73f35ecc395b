package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jonathan/interview-manager/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitConfig names the broker and the two queues
type RabbitConfig struct {
	URL         string
	JobQueue    string
	ResultQueue string
	// MaxConsumer bounds the number of results handled at once
	MaxConsumer int
}

// Rabbit publishes jobs to JobQueue and consumes ResultQueue
type Rabbit struct {
	cfg RabbitConfig
}

// Bus is both a Publisher and a Consumer
type Bus interface {
	Publisher
	Consumer
}

// New returns a RabbitMQ bus, or a Dummy when no URL is configured
func New(cfg RabbitConfig) Bus {
	if cfg.URL == "" {
		return &Dummy{}
	}
	if cfg.MaxConsumer < 1 {
		cfg.MaxConsumer = 1
	}
	return &Rabbit{cfg: cfg}
}

func (r *Rabbit) channel(queue string) (*amqp.Connection, *amqp.Channel, amqp.Queue, error) {
	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return nil, nil, amqp.Queue{}, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, amqp.Queue{}, fmt.Errorf("failed to open channel: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, amqp.Queue{}, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return conn, ch, q, nil
}

// PublishVideoJob sends job as a persistent JSON message
func (r *Rabbit) PublishVideoJob(ctx context.Context, job VideoJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal video job: %w", err)
	}

	conn, ch, q, err := r.channel(r.cfg.JobQueue)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	err = ch.PublishWithContext(ctx, "", q.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ResponseID.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish video job: %w", err)
	}

	logging.FromContext(ctx).Info("video job published",
		zap.String("response_id", job.ResponseID.String()),
		zap.String("object_key", job.ObjectKey))
	return nil
}

// Consume delivers results to handler with at most MaxConsumer in flight.
// Malformed messages are dropped; handler errors requeue the message.
func (r *Rabbit) Consume(ctx context.Context, handler ResultHandler) error {
	conn, ch, q, err := r.channel(r.cfg.ResultQueue)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	if err := ch.Qos(r.cfg.MaxConsumer, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", q.Name, err)
	}

	logging.FromContext(ctx).Info("consuming video results", zap.String("queue", q.Name))

	return serve(ctx, msgs, r.cfg.MaxConsumer, handler)
}

// serve runs handler for each delivery with at most limit in flight. It returns once
// ctx is done or msgs closes, and only after every started handler has acked or
// nacked, so no delivery outlives the channel.
func serve(ctx context.Context, msgs <-chan amqp.Delivery, limit int, handler ResultHandler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	// in-flight results finish against the store even after shutdown starts
	handlerCtx := context.WithoutCancel(ctx)
	sem := make(chan struct{}, limit)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				handle(handlerCtx, msg.Body, msg, handler)
			}()
		}
	}
}

// acknowledger is the subset of amqp.Delivery used by handle
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handle(ctx context.Context, body []byte, ack acknowledger, handler ResultHandler) {
	log := logging.FromContext(ctx)

	result, err := DecodeResult(body)
	if err != nil {
		log.Warn("dropping malformed video result", zap.Error(err))
		_ = ack.Nack(false, false)
		return
	}

	log = log.With(zap.String("response_id", result.ResponseID.String()), zap.String("status", result.Status))
	if err := handler(ctx, result); err != nil {
		log.Error("failed to apply video result", zap.Error(err))
		_ = ack.Nack(false, true)
		return
	}
	log.Info("video result applied")
	_ = ack.Ack(false)
}
