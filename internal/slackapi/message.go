package slackapi

import (
	"github.com/slack-go/slack"

	"stampbot/internal/attendance"
)

const (
	buttonColor = "#3AA3E3"
	// slack-go declares ActionType without a constant for buttons.
	actionButton slack.ActionType = "button"
)

var finishConfirmation = slack.ConfirmationField{
	Title:       "確認",
	Text:        "本当に勤務を終了しますか？",
	OkText:      "はい",
	DismissText: "いいえ",
}

// ButtonsMessage renders actions as an interactive attachment.
func ButtonsMessage(actions []attendance.Action) slack.Msg {
	buttons := make([]slack.AttachmentAction, 0, len(actions))
	for _, a := range actions {
		b := slack.AttachmentAction{
			Name:  a.Name,
			Text:  a.Label,
			Style: a.Style,
			Type:  actionButton,
			Value: a.Code.ValueString(),
		}
		if a.Confirm {
			confirm := finishConfirmation
			b.Confirm = &confirm
		}
		buttons = append(buttons, b)
	}
	return slack.Msg{
		Attachments: []slack.Attachment{{
			CallbackID: CallbackStamp,
			Color:      buttonColor,
			Fallback:   "打刻",
			Actions:    buttons,
		}},
	}
}

// TokenDialog is the dialog used to register an AKASHI token.
func TokenDialog(triggerID string) slack.Dialog {
	return slack.Dialog{
		TriggerID:   triggerID,
		CallbackID:  CallbackToken,
		Title:       "APIトークンを登録する",
		SubmitLabel: "Submit",
		Elements: []slack.DialogElement{
			&slack.TextInputElement{
				DialogInput: slack.DialogInput{
					Type:  slack.InputTypeTextArea,
					Label: "APIトークンを入力してください",
					Name:  TokenField,
				},
				Hint: TokenIssueGuideURL + " から発行できます",
			},
		},
	}
}

// StampedNotice is posted to the shared channel after a successful stamp.
func StampedNotice(userID string, code attendance.Code) string {
	return "<@" + userID + ">さんが" + code.Label() + "しました"
}
