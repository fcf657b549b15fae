package sendability

import (
	"testing"

	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/stretchr/testify/assert"
)

var smsOpts = Options{Predicate: PhoneChannel("sms"), MissingStatus: NoSenderPhone}

func phone(id, status string) model.ExternalID {
	return model.ExternalID{ID: id, Type: "phone", ChannelType: "sms", SubscriptionStatus: model.SubscriptionStatus(status)}
}

func TestEvaluateScenarios(t *testing.T) {
	cases := []struct {
		name    string
		payload model.Payload
		opts    Options
		want    Result
	}{
		{
			name:    "send disabled",
			payload: model.Payload{Send: false, ExternalIDs: []model.ExternalID{phone("+15551234567", "subscribed")}},
			opts:    smsOpts,
			want:    Result{Status: SendDisabled},
		},
		{
			name:    "no matching ids for phone channel",
			payload: model.Payload{Send: true, ExternalIDs: []model.ExternalID{{ID: "a@b.co", Type: "email", SubscriptionStatus: "subscribed"}}},
			opts:    smsOpts,
			want:    Result{Status: NoSenderPhone},
		},
		{
			name:    "no matching ids defaults to no supported external ids",
			payload: model.Payload{Send: true},
			opts:    Options{Predicate: Email()},
			want:    Result{Status: NoSupportedExternalIDs},
		},
		{
			name:    "invalid status",
			payload: model.Payload{Send: true, ExternalIDs: []model.ExternalID{phone("+15551234567", "banana")}},
			opts:    smsOpts,
			want:    Result{Status: InvalidSubscriptionStatus, InvalidStatuses: []string{"banana"}},
		},
		{
			name:    "unsubscribed",
			payload: model.Payload{Send: true, ExternalIDs: []model.ExternalID{phone("+15551234567", "unsubscribed"), phone("+15557654321", "")}},
			opts:    smsOpts,
			want:    Result{Status: NotSubscribed},
		},
		{
			name:    "winner with empty address",
			payload: model.Payload{Send: true, ExternalIDs: []model.ExternalID{phone("", "subscribed")}},
			opts:    smsOpts,
			want:    Result{Status: NoSenderPhone},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(&tc.payload, tc.opts)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateShouldSend(t *testing.T) {
	p := model.Payload{Send: true, ExternalIDs: []model.ExternalID{phone("+15551234567", "subscribed")}}

	got := Evaluate(&p, smsOpts)
	assert.Equal(t, ShouldSend, got.Status)
	assert.Equal(t, "+15551234567", got.Address)

	again := Evaluate(&p, smsOpts)
	assert.Equal(t, got, again)
}

func TestEvaluateFirstSendableWinsAndSkipsInvalid(t *testing.T) {
	p := model.Payload{Send: true, ExternalIDs: []model.ExternalID{
		phone("+15550000001", "banana"),
		phone("+15550000002", "unsubscribed"),
		phone("+15550000003", "TRUE"),
		phone("+15550000004", "subscribed"),
	}}

	got := Evaluate(&p, smsOpts)
	assert.Equal(t, ShouldSend, got.Status)
	assert.Equal(t, "+15550000003", got.Address)
}

func TestEvaluateNormalizesStatusCase(t *testing.T) {
	for _, status := range []string{"Subscribed", "TRUE", " subscribed "} {
		p := model.Payload{Send: true, ExternalIDs: []model.ExternalID{phone("+15550000001", status)}}
		got := Evaluate(&p, smsOpts)
		assert.Equal(t, ShouldSend, got.Status, status)
		assert.Equal(t, "+15550000001", got.Address)
	}

	p := model.Payload{Send: true, ExternalIDs: []model.ExternalID{phone("+15550000001", "Unsubscribed")}}
	assert.Equal(t, NotSubscribed, Evaluate(&p, smsOpts).Status)
}

func TestEvaluateGroups(t *testing.T) {
	email := func(groups ...model.GroupSubscription) model.ExternalID {
		return model.ExternalID{ID: "jane@example.com", Type: "email", SubscriptionStatus: "subscribed", Groups: groups}
	}
	opts := Options{Predicate: Email(), GroupID: "g1"}

	p := model.Payload{Send: true, ExternalIDs: []model.ExternalID{email(model.GroupSubscription{ID: "g1", IsSubscribed: true})}}
	assert.Equal(t, ShouldSend, Evaluate(&p, opts).Status)

	p = model.Payload{Send: true, ExternalIDs: []model.ExternalID{email(model.GroupSubscription{ID: "g1", IsSubscribed: false})}}
	assert.Equal(t, NotSubscribed, Evaluate(&p, opts).Status)

	p = model.Payload{Send: true, ExternalIDs: []model.ExternalID{email()}}
	assert.Equal(t, NotSubscribed, Evaluate(&p, opts).Status)

	opts.BypassSubscription = true
	p.ExternalIDs[0].SubscriptionStatus = "unsubscribed"
	got := Evaluate(&p, opts)
	assert.Equal(t, ShouldSend, got.Status)
	assert.Equal(t, "jane@example.com", got.Address)
}

func TestEvaluateAllPushDevices(t *testing.T) {
	p := model.Payload{Send: true, ExternalIDs: []model.ExternalID{
		{ID: "tok-ios", Type: "ios.push_token", ChannelType: "ios_push", SubscriptionStatus: "subscribed"},
		{ID: "tok-off", Type: "android.push_token", SubscriptionStatus: "unsubscribed"},
		{ID: "tok-mismatch", Type: "android.push_token", ChannelType: "ios_push", SubscriptionStatus: "subscribed"},
		{ID: "+15551234567", Type: "phone", ChannelType: "sms", SubscriptionStatus: "subscribed"},
		{ID: "tok-android", Type: "android.push_token", SubscriptionStatus: "true"},
	}}

	got := EvaluateAll(&p, Options{Predicate: PushDevice()})
	assert.Equal(t, ShouldSend, got.Status)
	assert.Equal(t, []string{"tok-ios", "tok-android"}, got.Addresses)
	assert.Equal(t, "tok-ios", got.Address)
	assert.Len(t, got.Winners, 2)
}

func TestEvaluateAllNoneSendable(t *testing.T) {
	p := model.Payload{Send: true, ExternalIDs: []model.ExternalID{
		{ID: "tok-1", Type: "ios.push_token", SubscriptionStatus: "maybe"},
	}}
	got := EvaluateAll(&p, Options{Predicate: PushDevice()})
	assert.Equal(t, InvalidSubscriptionStatus, got.Status)
	assert.Empty(t, got.Address)

	p.Send = false
	assert.Equal(t, SendDisabled, EvaluateAll(&p, Options{Predicate: PushDevice()}).Status)
}
