// Package slackapi adapts slack-go to the few calls the bot makes and builds
// the messages it sends.
package slackapi

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Callback ids and field names shared between outgoing messages and the
// interaction handler.
const (
	CallbackStamp      = "stamp"
	CallbackToken      = "api_token"
	TokenField         = "api_token"
	TokenIssueGuideURL = "https://atnd.ak4.jp/mypage/tokens"
)

// Client posts to Slack on behalf of the bot user.
type Client struct {
	api *slack.Client
}

// New creates a client authenticated with the bot token.
func New(botToken string, options ...slack.Option) *Client {
	return &Client{api: slack.New(botToken, options...)}
}

// JoinChannel makes the bot a member of channelID so it can post there.
func (c *Client) JoinChannel(ctx context.Context, channelID string) error {
	if _, _, _, err := c.api.JoinConversationContext(ctx, channelID); err != nil {
		return fmt.Errorf("join %s: %w", channelID, err)
	}
	return nil
}

// PostMessage sends a plain text message to a channel or, given a user id, a DM.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	if _, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post to %s: %w", channelID, err)
	}
	return nil
}

// OpenTokenDialog asks the user for their AKASHI API token.
func (c *Client) OpenTokenDialog(ctx context.Context, triggerID string) error {
	if err := c.api.OpenDialogContext(ctx, triggerID, TokenDialog(triggerID)); err != nil {
		return fmt.Errorf("open dialog: %w", err)
	}
	return nil
}
