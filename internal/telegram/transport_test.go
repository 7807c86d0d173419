package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	sent []tgbotapi.Chattable
	errs []error
}

func (f *fakeRequester) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.sent = append(f.sent, c)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	if err != nil {
		return nil, err
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

var errBadMarkup = errors.New("Bad Request: can't parse entities: Unsupported start tag")

func TestSendText_HTMLThenPlain(t *testing.T) {
	req := &fakeRequester{errs: []error{errBadMarkup}}
	tr := newBotTransport(req)

	kb := Keyboard{row(button("Menu", Command{Kind: CmdMenu}))}
	require.NoError(t, tr.SendText(context.Background(), 5, "Title\n<b> & co", kb))
	require.Len(t, req.sent, 2)

	first := req.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, tgbotapi.ModeHTML, first.ParseMode)
	assert.Equal(t, "<b>Title</b>\n&lt;b&gt; &amp; co", first.Text)

	second := req.sent[1].(tgbotapi.MessageConfig)
	assert.Empty(t, second.ParseMode)
	assert.Equal(t, "Title\n<b> & co", second.Text)
	assert.Equal(t, int64(5), second.ChatID)
	assert.NotNil(t, second.ReplyMarkup, "keyboard survives the retry")
}

func TestEditText_HTMLThenPlain(t *testing.T) {
	req := &fakeRequester{errs: []error{errBadMarkup}}
	tr := newBotTransport(req)

	require.NoError(t, tr.EditText(context.Background(), 5, 9, "a\nb", nil))
	require.Len(t, req.sent, 2)
	first := req.sent[0].(tgbotapi.EditMessageTextConfig)
	second := req.sent[1].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, tgbotapi.ModeHTML, first.ParseMode)
	assert.Empty(t, second.ParseMode)
	assert.Equal(t, 9, second.MessageID)
	assert.Nil(t, second.ReplyMarkup)
}

func TestSendText_OtherErrorsAreNotRetried(t *testing.T) {
	req := &fakeRequester{errs: []error{errors.New("Forbidden: bot was blocked by the user")}}
	tr := newBotTransport(req)

	err := tr.SendText(context.Background(), 5, "hi", nil)
	assert.ErrorContains(t, err, "blocked")
	assert.Len(t, req.sent, 1)
}

func TestSendText_PlainRetryFailsOnce(t *testing.T) {
	req := &fakeRequester{errs: []error{errBadMarkup, errors.New("network down")}}
	tr := newBotTransport(req)

	err := tr.SendText(context.Background(), 5, "hi", nil)
	assert.ErrorContains(t, err, "network down")
	assert.Len(t, req.sent, 2)
}

func TestSendText_TrimsLongText(t *testing.T) {
	req := &fakeRequester{}
	tr := newBotTransport(req)

	long := make([]rune, 5000)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, tr.SendText(context.Background(), 5, string(long), nil))
	msg := req.sent[0].(tgbotapi.MessageConfig)
	assert.LessOrEqual(t, len([]rune(msg.Text)), 4096)
}

func TestAnswerCallback(t *testing.T) {
	req := &fakeRequester{}
	tr := newBotTransport(req)

	require.NoError(t, tr.AnswerCallback(context.Background(), "q1", "Saved"))
	cb := req.sent[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, "q1", cb.CallbackQueryID)
	assert.Equal(t, "Saved", cb.Text)
}
