package notification

import (
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expoPushURL = "https://exp.host/--/api/v2/push/send"

func testMessages() []expo.PushMessage {
	return []expo.PushMessage{
		{
			To:    []expo.ExponentPushToken{"ExponentPushToken[alice]"},
			Title: "Hi",
			Body:  "First",
			Sound: "default",
		},
		{
			To:    []expo.ExponentPushToken{"ExponentPushToken[bob]"},
			Title: "Hi",
			Body:  "Second",
			Sound: "default",
		},
	}
}

func TestExpoGatewayParsesAlignedTickets(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", expoPushURL,
		httpmock.NewStringResponder(http.StatusOK,
			`{"data":[{"status":"ok","id":"ticket-1"},{"status":"error","message":"device gone","details":{"error":"DeviceNotRegistered"}}]}`))

	gateway := NewExpoGateway()
	tickets, err := gateway.PublishMultiple(testMessages())
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	assert.NoError(t, tickets[0].ValidateResponse())

	ticketErr := tickets[1].ValidateResponse()
	require.Error(t, ticketErr)
	_, notRegistered := ticketErr.(*expo.DeviceNotRegisteredError)
	assert.True(t, notRegistered)
}

func TestExpoGatewayTimesOut(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", expoPushURL,
		func(req *http.Request) (*http.Response, error) {
			time.Sleep(200 * time.Millisecond)
			return httpmock.NewStringResponse(http.StatusOK, `{"data":[]}`), nil
		})

	gateway := NewExpoGateway()
	gateway.timeout = 20 * time.Millisecond

	_, err := gateway.PublishMultiple(testMessages())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
