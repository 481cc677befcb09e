package notification

import (
	"context"
	"errors"
	"testing"

	directorydomain "shifttask-backend/internal/directory/domain"
	directoryrepo "shifttask-backend/internal/directory/repository"
	"shifttask-backend/internal/testdb"
	"shifttask-backend/pkg/fcm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	channel Channel
	err     error
	panics  bool
	got     []Recipient
}

func (f *fakeSender) Channel() Channel { return f.channel }

func (f *fakeSender) Send(_ context.Context, to Recipient, _ Message) error {
	if f.panics {
		panic("boom")
	}
	f.got = append(f.got, to)
	return f.err
}

var msg = Message{Kind: KindEscalation, ResourceID: "item-1", Subject: "Escalation level 1: Unlock", Body: "late"}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	inApp := &fakeSender{channel: ChannelInApp}
	email := &fakeSender{channel: ChannelEmail, err: errors.New("smtp down")}
	sms := &fakeSender{channel: ChannelSMS, panics: true}
	d := NewDispatcher(inApp, email, sms, nil)

	to := Recipient{EmployeeID: "emp-1", UserID: "user-1"}
	errs := d.Dispatch(context.Background(), to, msg, ChannelEmail, ChannelSMS, ChannelInApp)

	require.Len(t, errs, 2)
	var chErr *ChannelError
	require.True(t, errors.As(errs[0], &chErr))
	assert.Equal(t, ChannelEmail, chErr.Channel)
	require.True(t, errors.As(errs[1], &chErr))
	assert.Equal(t, ChannelSMS, chErr.Channel)
	assert.Contains(t, chErr.Error(), "sender panic")

	assert.Equal(t, []Recipient{to}, inApp.got)
}

func TestDispatchSkipsUnconfiguredChannel(t *testing.T) {
	inApp := &fakeSender{channel: ChannelInApp}
	d := NewDispatcher(inApp)

	errs := d.Dispatch(context.Background(), Recipient{UserID: "user-1"}, msg, ChannelSMS, ChannelInApp)
	assert.Empty(t, errs)
	assert.Len(t, inApp.got, 1)
}

type fakePusher struct {
	tokens   []string
	rejected []string
	note     fcm.Notification
}

func (p *fakePusher) SendToDevices(_ context.Context, tokens []string, n fcm.Notification) ([]string, error) {
	p.tokens = tokens
	p.note = n
	return p.rejected, nil
}

func TestInAppSenderRecordsActivityAndPrunesStaleTokens(t *testing.T) {
	db := testdb.Open(t, &Activity{}, &directorydomain.PushToken{})
	activities := NewGormActivityRepository(db)
	tokens := directoryrepo.NewPushTokenRepository(db)
	require.NoError(t, tokens.SaveToken("user-1", "good", "phone"))
	require.NoError(t, tokens.SaveToken("user-1", "stale", "tablet"))

	pusher := &fakePusher{rejected: []string{"stale"}}
	sender := NewInAppSender(activities, tokens, pusher)

	err := sender.Send(context.Background(), Recipient{EmployeeID: "emp-1", UserID: "user-1"}, msg)
	require.NoError(t, err)

	stored, err := activities.FindByUser("user-1", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, KindEscalation, stored[0].Kind)
	assert.Equal(t, "item-1", stored[0].ResourceID)
	assert.Equal(t, msg.Subject, stored[0].Summary)

	assert.ElementsMatch(t, []string{"good", "stale"}, pusher.tokens)
	assert.Equal(t, string(KindEscalation), pusher.note.Data["type"])

	left, err := tokens.GetTokensByUserID("user-1")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "good", left[0].Token)

	err = sender.Send(context.Background(), Recipient{EmployeeID: "emp-2"}, msg)
	assert.ErrorIs(t, err, ErrNoAddress)
}

type fakeMailer struct{ to, subject string }

func (m *fakeMailer) Send(_ context.Context, toAddress, _, subject, _ string) error {
	m.to, m.subject = toAddress, subject
	return nil
}

type fakeTexter struct{ to, text string }

func (m *fakeTexter) Send(_ context.Context, to, text string) error {
	m.to, m.text = to, text
	return nil
}

func TestEmailAndSMSSendersNeedAddresses(t *testing.T) {
	mailer := &fakeMailer{}
	texter := &fakeTexter{}
	email := NewEmailSender(mailer)
	sms := NewSMSSender(texter)

	to := Recipient{EmployeeID: "emp-1", Email: "ana@example.com", Phone: "+15550100"}
	require.NoError(t, email.Send(context.Background(), to, msg))
	require.NoError(t, sms.Send(context.Background(), to, msg))
	assert.Equal(t, "ana@example.com", mailer.to)
	assert.Equal(t, msg.Subject, mailer.subject)
	assert.Equal(t, "+15550100", texter.to)
	assert.Equal(t, "Escalation level 1: Unlock: late", texter.text)

	assert.ErrorIs(t, email.Send(context.Background(), Recipient{}, msg), ErrNoAddress)
	assert.ErrorIs(t, sms.Send(context.Background(), Recipient{}, msg), ErrNoAddress)
}
