package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/dropscout/internal/drops"
)

func newFakeTopic(t *testing.T) (*pubsub.Topic, *pstest.Server) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "dropscout-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "threads")
	require.NoError(t, err)
	return topic, srv
}

func TestPublishThread(t *testing.T) {
	t.Parallel()

	topic, srv := newFakeTopic(t)
	pub := New(topic)
	t.Cleanup(pub.Stop)

	id, err := pub.PublishThread(context.Background(), drops.Thread{
		Segments:  []string{"head", "steps"},
		SelfReply: "more soon",
		Card:      &drops.Card{Title: "AIRDROP", Subtitle: "ZORA | VERIFIED"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, id, msgs[0].ID)
	require.Equal(t, "2", msgs[0].Attributes["segments"])

	var got ThreadMessage
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, []string{"head", "steps"}, got.Segments)
	require.Equal(t, "ZORA | VERIFIED", got.Card.Subtitle)
}

func TestPublishThreadRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := New(nil).PublishThread(context.Background(), drops.Thread{Segments: []string{"x"}})
	require.True(t, errors.Is(err, drops.ErrPublish))

	topic, _ := newFakeTopic(t)
	_, err = New(topic).PublishThread(context.Background(), drops.Thread{})
	require.ErrorIs(t, err, drops.ErrPublish)
}
