package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jmehdipour/engage-dispatch/internal/channel"
	"github.com/jmehdipour/engage-dispatch/internal/failure"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/sendability"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintResultUsesAPIShape(t *testing.T) {
	res := &channel.Result{
		Channel:   model.ChannelPush,
		MessageID: "m1",
		Status:    sendability.ShouldSend,
		Deliveries: []channel.Delivery{
			{Recipient: "tok-1", Response: &transport.Response{Status: 201, Body: []byte(`{"sid":"NO1"}`)}},
			{Recipient: "tok-2", Err: failure.Integration("device unregistered", "20404", 404)},
		},
	}
	recorded := []tracker.Metric{{Kind: "incr", Name: "push.send.start", Value: 1}}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res, nil, recorded))

	var out struct {
		Result struct {
			Channel    string `json:"channel"`
			MessageID  string `json:"message_id"`
			Status     string `json:"status"`
			Deliveries []struct {
				Recipient string `json:"recipient"`
				Status    int    `json:"status"`
				Error     string `json:"error"`
			} `json:"deliveries"`
		} `json:"result"`
		Metrics []json.RawMessage `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "push", out.Result.Channel)
	assert.Equal(t, "m1", out.Result.MessageID)
	require.Len(t, out.Result.Deliveries, 2)
	assert.Equal(t, 201, out.Result.Deliveries[0].Status)
	assert.Equal(t, "device unregistered (20404)", out.Result.Deliveries[1].Error)
	assert.Len(t, out.Metrics, 1)
	assert.NotContains(t, buf.String(), "eyJzaWQi")
}

func TestPrintResultError(t *testing.T) {
	var buf bytes.Buffer
	err := printResult(&buf, nil, errors.New("boom"), nil)
	require.Error(t, err)

	var out struct {
		Error struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		} `json:"error"`
		HTTPStatus int `json:"http_status"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "boom", out.Error.Error)
	assert.Equal(t, "internal", out.Error.Kind)
	assert.Equal(t, 500, out.HTTPStatus)
}
