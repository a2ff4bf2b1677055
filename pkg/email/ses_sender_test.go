package email

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHeader(t *testing.T) {
	assert.Equal(t, "no-reply@coldstorage.example", fromHeader("no-reply@coldstorage.example", ""))
	assert.Equal(t, `"Cold Storage Marketplace" <no-reply@coldstorage.example>`,
		fromHeader("no-reply@coldstorage.example", "Cold Storage Marketplace"))
}

func TestBuildInput(t *testing.T) {
	s := &SESV2Sender{from: "no-reply@coldstorage.example", configurationSet: "receipts"}

	input := s.buildInput("asha@example.com", "Your receipt", "plain", "<p>html</p>")
	assert.Equal(t, []string{"asha@example.com"}, input.Destination.ToAddresses)
	assert.Equal(t, "receipts", aws.ToString(input.ConfigurationSetName))
	assert.Equal(t, "Your receipt", aws.ToString(input.Content.Simple.Subject.Data))
	assert.Equal(t, "plain", aws.ToString(input.Content.Simple.Body.Text.Data))
	require.NotNil(t, input.Content.Simple.Body.Html)
	assert.Equal(t, "<p>html</p>", aws.ToString(input.Content.Simple.Body.Html.Data))

	s.configurationSet = ""
	input = s.buildInput("asha@example.com", "Plain only", "plain", "")
	assert.Nil(t, input.ConfigurationSetName)
	assert.Nil(t, input.Content.Simple.Body.Html)
}

func TestNewSenderDrivers(t *testing.T) {
	sender, err := NewSender(context.Background(), Options{Driver: DriverLog})
	require.NoError(t, err)
	assert.IsType(t, LogSender{}, sender)
	assert.NoError(t, sender.SendEmail(context.Background(), "asha@example.com", "hi", "body", ""))

	_, err = NewSender(context.Background(), Options{Driver: "smtp"})
	assert.Error(t, err)
}
