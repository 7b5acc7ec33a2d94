package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"

	"stampbot/internal/akashi"
	"stampbot/internal/attendance"
	"stampbot/internal/slackapi"
)

const (
	msgAlreadyFinished = "すでに勤務を終了しています。"
	msgCheckToken      = "APIトークンを確認してください"
	msgFailed          = "エラーが発生しました"
	msgTokenRegistered = "APIトークンを登録しました"
	msgTokenInvalid    = "APIトークンが（おそらく）正しくありません"
)

func channelWarning(channelID string) string {
	return ":warning:エラーが発生しました\n" +
		fmt.Sprintf("- 環境変数の`SLACK_CHANNEL_ID`を確認してください（現在の値：%s）\n", channelID) +
		"- private-channelには通知できません\n" +
		"- 打刻の通知が不要な場合は環境変数の`SLACK_CHANNEL_ID`を削除してください\n" +
		"- SlackAppのOAuth scopeに`channels:join`が追加されていることを確認してください"
}

// Slash answers the slash command with the buttons valid for the user, or
// opens the token dialog when no usable token is registered.
func (h *Handler) Slash(c *gin.Context) {
	ctx := c.Request.Context()
	if h.ChannelID != "" {
		jctx, cancel := h.slackContext(ctx)
		err := h.Chat.JoinChannel(jctx, h.ChannelID)
		cancel()
		if err != nil {
			h.Log.Error().Err(err).Str("channel", h.ChannelID).Msg("join channel failed")
			c.String(http.StatusOK, channelWarning(h.ChannelID))
			return
		}
	}

	userID := c.PostForm("user_id")
	triggerID := c.PostForm("trigger_id")

	actions, err := h.Attendance.Buttons(ctx, userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, slackapi.ButtonsMessage(actions))
		return
	case errors.Is(err, attendance.ErrAlreadyFinished):
		c.String(http.StatusOK, msgAlreadyFinished)
		return
	case errors.Is(err, attendance.ErrTokenNotFound):
	default:
		h.Metrics.ObserveAPIError(err)
		h.Log.Warn().Err(err).Str("user_id", userID).Msg("buttons unavailable, asking for token")
	}

	dctx, cancel := h.slackContext(ctx)
	defer cancel()
	if err := h.Chat.OpenTokenDialog(dctx, triggerID); err != nil {
		h.Log.Error().Err(err).Str("user_id", userID).Msg("open token dialog failed")
	}
	c.Status(http.StatusOK)
}

// Actions handles interactive callbacks: token dialog submissions and stamp
// button clicks.
func (h *Handler) Actions(c *gin.Context) {
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(c.PostForm("payload")), &cb); err != nil {
		h.Log.Warn().Err(err).Msg("malformed interaction payload")
		c.Status(http.StatusBadRequest)
		return
	}

	switch cb.CallbackID {
	case slackapi.CallbackToken:
		h.registerToken(c, cb)
	case slackapi.CallbackStamp:
		h.stamp(c, cb)
	default:
		h.Log.Warn().Str("callback_id", cb.CallbackID).Msg("unknown callback")
		c.Status(http.StatusOK)
	}
}

func (h *Handler) registerToken(c *gin.Context, cb slack.InteractionCallback) {
	ctx := c.Request.Context()
	userID := cb.User.ID
	// Dialog submissions must be acknowledged with an empty body.
	defer c.Status(http.StatusOK)

	_, err := h.Attendance.RegisterToken(ctx, userID, cb.Submission[slackapi.TokenField])
	reply := msgTokenRegistered
	switch {
	case errors.Is(err, attendance.ErrInvalidToken):
		h.countRegistration("invalid")
		reply = msgTokenInvalid
	case err != nil:
		h.countRegistration("error")
		h.Log.Error().Err(err).Str("user_id", userID).Msg("register token failed")
		return
	default:
		h.countRegistration("registered")
	}

	pctx, cancel := h.slackContext(ctx)
	defer cancel()
	if err := h.Chat.PostMessage(pctx, userID, reply); err != nil {
		h.Log.Error().Err(err).Str("user_id", userID).Msg("notify registration failed")
	}
}

func (h *Handler) countRegistration(result string) {
	if h.Metrics != nil {
		h.Metrics.Registrations.WithLabelValues(result).Inc()
	}
}

func (h *Handler) stamp(c *gin.Context, cb slack.InteractionCallback) {
	ctx := c.Request.Context()
	userID := cb.User.ID

	actions := cb.ActionCallback.AttachmentActions
	if len(actions) == 0 {
		h.Log.Warn().Str("user_id", userID).Msg("stamp callback without action")
		c.String(http.StatusOK, msgFailed)
		return
	}
	code, err := attendance.ParseCode(actions[0].Value)
	if err != nil {
		h.Log.Warn().Err(err).Str("user_id", userID).Msg("bad stamp value")
		c.String(http.StatusOK, msgFailed)
		return
	}

	if h.Guard != nil && cb.ActionTs != "" {
		first, err := h.Guard.First(ctx, "stamp:"+userID+":"+cb.ActionTs)
		if err != nil {
			h.Log.Warn().Err(err).Msg("dedupe guard unavailable")
		} else if !first {
			h.Log.Info().Str("user_id", userID).Str("action_ts", cb.ActionTs).Msg("duplicate stamp click ignored")
			c.Status(http.StatusOK)
			return
		}
	}

	st, err := h.Attendance.Stamp(ctx, userID, code)
	if err != nil {
		h.Metrics.ObserveAPIError(err)
		var rejection *akashi.RejectionError
		switch {
		case errors.Is(err, attendance.ErrTokenNotFound):
			c.String(http.StatusOK, msgCheckToken)
		case errors.As(err, &rejection):
			h.Log.Error().Err(err).Str("user_id", userID).Msg("stamp rejected")
			c.String(http.StatusOK, msgCheckToken)
		default:
			h.Log.Error().Err(err).Str("user_id", userID).Msg("stamp failed")
			c.String(http.StatusOK, msgFailed)
		}
		return
	}
	if h.Metrics != nil {
		h.Metrics.Stamps.WithLabelValues(st.Type.ValueString()).Inc()
	}

	if h.ChannelID != "" {
		pctx, cancel := h.slackContext(ctx)
		err := h.Chat.PostMessage(pctx, h.ChannelID, slackapi.StampedNotice(userID, st.Type))
		cancel()
		if err != nil {
			h.Log.Error().Err(err).Str("channel", h.ChannelID).Msg("announce stamp failed")
		}
	}
	c.String(http.StatusOK, st.Describe())
}
