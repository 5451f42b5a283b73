package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const (
	logBatchSize     = 100
	logFlushInterval = 2 * time.Second
	logQueueSize     = 1024
)

type logsAPI interface {
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, in *cloudwatchlogs.PutRetentionPolicyInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// LogShipper is an io.Writer that batches log lines into CloudWatch Logs.
// Write never blocks on the network; lines are dropped when the queue is full.
type LogShipper struct {
	client  logsAPI
	group   string
	stream  string
	queue   chan types.InputLogEvent
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
	dropped int64
}

// NewLogShipper makes sure the log group and a fresh stream for service exist,
// then starts the background flusher.
func NewLogShipper(ctx context.Context, cfg aws.Config, group, service string) (*LogShipper, error) {
	return newLogShipper(ctx, cloudwatchlogs.NewFromConfig(cfg), group, service)
}

func newLogShipper(ctx context.Context, client logsAPI, group, service string) (*LogShipper, error) {
	if group == "" {
		group = "/gourmet-marketplace/services"
	}
	s := &LogShipper{
		client: client,
		group:  group,
		stream: fmt.Sprintf("%s-%d", service, time.Now().Unix()),
		queue:  make(chan types.InputLogEvent, logQueueSize),
		done:   make(chan struct{}),
	}
	if err := s.ensureGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure log group: %w", err)
	}
	if _, err := client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
	}); err != nil {
		return nil, fmt.Errorf("failed to create log stream: %w", err)
	}
	go s.run()
	return s, nil
}

func (s *LogShipper) ensureGroup(ctx context.Context) error {
	_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: aws.String(s.group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return err
	}
	_, err = s.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(s.group),
		RetentionInDays: aws.Int32(30),
	})
	return err
}

// Write queues one log line. zap hands each encoded entry to a single Write.
func (s *LogShipper) Write(p []byte) (int, error) {
	event := types.InputLogEvent{
		Message:   aws.String(string(p)),
		Timestamp: aws.Int64(time.Now().UnixMilli()),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return len(p), nil
	}
	select {
	case s.queue <- event:
	default:
		s.dropped++
	}
	return len(p), nil
}

// Dropped reports how many lines were discarded because the queue was full.
func (s *LogShipper) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *LogShipper) run() {
	defer close(s.done)
	ticker := time.NewTicker(logFlushInterval)
	defer ticker.Stop()

	batch := make([]types.InputLogEvent, 0, logBatchSize)
	for {
		select {
		case event, ok := <-s.queue:
			if !ok {
				s.flush(batch)
				return
			}
			batch = append(batch, event)
			if len(batch) >= logBatchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			s.flush(batch)
			batch = batch[:0]
		}
	}
}

func (s *LogShipper) flush(batch []types.InputLogEvent) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
		LogEvents:     append([]types.InputLogEvent(nil), batch...),
	}); err != nil {
		// the logger itself is the writer, so report on stderr
		fmt.Fprintf(os.Stderr, "CloudWatch Logs flush failed: %v\n", err)
	}
}

// Close flushes queued lines and stops the flusher. Later writes are discarded.
func (s *LogShipper) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
