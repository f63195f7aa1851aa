package xapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/drops"
)

type createRequest struct {
	Text  string     `json:"text"`
	Reply *replySpec `json:"reply,omitempty"`
}

type replySpec struct {
	InReplyTo string `json:"in_reply_to_tweet_id"`
}

type createResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// PublishThread implements drops.Publisher. Segments are chained as replies to
// the previous one and the self reply answers the root. Once the root exists
// the thread counts as published; later failures are logged. Cards are not
// uploaded.
func (c *Client) PublishThread(ctx context.Context, thread drops.Thread) (string, error) {
	if len(thread.Segments) == 0 {
		return "", fmt.Errorf("%w: empty thread", drops.ErrPublish)
	}
	if c.cfg.UserToken == "" {
		return "", fmt.Errorf("%w: x.user_token is required for posting", drops.ErrPublish)
	}

	rootID, err := c.post(ctx, thread.Segments[0], "")
	if err != nil {
		return "", fmt.Errorf("%w: root: %w", drops.ErrPublish, err)
	}
	log := c.logger.With(zap.String("root_id", rootID))

	prev := rootID
	for i, seg := range thread.Segments[1:] {
		id, err := c.post(ctx, seg, prev)
		if err != nil {
			log.Warn("thread reply failed", zap.Int("segment", i+1), zap.Error(err))
			break
		}
		prev = id
	}
	if thread.SelfReply != "" {
		if _, err := c.post(ctx, thread.SelfReply, rootID); err != nil {
			log.Warn("self reply failed", zap.Error(err))
		}
	}
	return rootID, nil
}

func (c *Client) post(ctx context.Context, text, inReplyTo string) (string, error) {
	req := createRequest{Text: text}
	if inReplyTo != "" {
		req.Reply = &replySpec{InReplyTo: inReplyTo}
	}
	var resp createResponse
	if err := c.do(ctx, "tweets", http.MethodPost, "/2/tweets", nil, c.cfg.UserToken, req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", errors.New("xapi: create returned no id")
	}
	return resp.Data.ID, nil
}
