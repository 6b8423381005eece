package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/config"
)

func TestNewNotifier(t *testing.T) {
	assert.IsType(t, NoopNotifier{}, NewNotifier(&config.MailConfig{Enabled: true}))
	assert.IsType(t, &SMTPNotifier{}, NewNotifier(&config.MailConfig{Enabled: true, Host: "smtp", Port: 587, NotifyTo: []string{"corretor@example.com"}}))
}

func TestSMTPNotifier_BuildMessage(t *testing.T) {
	n := NewSMTPNotifier(&config.MailConfig{Host: "smtp", Port: 587, From: "crm@example.com", NotifyTo: []string{"a@example.com", "b@example.com"}})

	msg, err := n.buildMessage(NewLead{ContactName: "Ana <script>", Phone: "5511999990001", InsuranceType: "AUTO", Title: "AUTO - Ana", DealID: "d-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Novo lead: AUTO - Ana"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "5511999990001")
	assert.NotContains(t, buf.String(), "<script>")
}
