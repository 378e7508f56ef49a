package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/samvad-hq/samvad-rail-feed/internal/domain"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func sampleEvent() Event {
	return NewEvent("live-trains", "Live trains", domain.Snapshot{
		URL:     "https://rata.digitraffic.fi/api/v1/live-trains",
		Digest:  "d1",
		Payload: json.RawMessage(`[]`),
	})
}

func TestSQSPublisherSendsAttributes(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", typ: TypeSQS, queueURL: "https://sqs/q", client: client, log: noopLogger{}}

	evt := sampleEvent()
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://sqs/q" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["source_id"]
	if !ok || aws.ToString(attr.StringValue) != "live-trains" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("source_id attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"id":"`+evt.ID+`"`) {
		t.Fatalf("body missing event id: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSPublisherWrapsSendError(t *testing.T) {
	boom := errors.New("boom")
	pub := &sqsPublisher{id: "queue", client: &fakeSQSClient{err: boom}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), sampleEvent()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestSNSPublisherPublishes(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{id: "topic", topicARN: "arn:aws:sns:::rail", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::rail" {
		t.Fatalf("TopicArn = %s", got)
	}
	if attr := client.input.MessageAttributes["digest"]; aws.ToString(attr.StringValue) != "d1" {
		t.Fatalf("digest attribute missing: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"source_id":"live-trains"`) {
		t.Fatalf("Message missing source_id: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherError(t *testing.T) {
	pub := &snsPublisher{id: "topic", client: &fakeSNSClient{err: errors.New("denied")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestGCPPubSubPublisherPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	admin, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer admin.Close()
	if _, err := admin.CreateTopic(ctx, "snapshots"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	pub, err := newGCPPubSubPublisher(ctx, PublisherConfig{
		ID:   "gcp",
		Type: TypeGCPPubSub,
		GCPPubSub: &GCPPubSubPublisherConfig{
			ProjectID: "test-project",
			Topic:     "snapshots",
		},
	}, nil)
	if err != nil {
		t.Fatalf("newGCPPubSubPublisher: %v", err)
	}
	defer pub.(*pubsubPublisher).Close()

	if err := pub.Publish(ctx, sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message on emulator, got %d", len(msgs))
	}
	if msgs[0].Attributes["source_id"] != "live-trains" {
		t.Fatalf("unexpected attributes %v", msgs[0].Attributes)
	}
}
