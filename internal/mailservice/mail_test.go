package mailservice

import (
	"errors"
	"testing"
	"time"

	"github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	sentAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rendered := &Rendered{Subject: "Welcome", Plain: "plain body", HTML: "<p>html body</p>"}
	data := welcomeData{Name: "Tess"}

	testCases := []struct {
		name      string
		renderErr error
		dialErr   error
		wantErr   string
	}{
		{name: "delivered"},
		{name: "render failure", renderErr: errors.New("unknown mail template"), wantErr: "unknown mail template"},
		{name: "dial failure", dialErr: errSMTPUnavailable, wantErr: "could not deliver mail: smtp unavailable"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			renderer := new(MockRenderer)
			dialer := new(MockDialer)

			mailer := &Mail{
				dialer:   dialer,
				renderer: renderer,
				sender:   "Threadline <no-reply@threadline.test>",
				now:      func() time.Time { return sentAt },
			}

			if tc.renderErr != nil {
				renderer.On("Render", "welcome_email.html", data).Return(nil, tc.renderErr)
			} else {
				renderer.On("Render", "welcome_email.html", data).Return(rendered, nil)
				dialer.On("DialAndSend", mock.MatchedBy(func(msgs []*mail.Message) bool {
					if len(msgs) != 1 {
						return false
					}
					msg := msgs[0]
					return msg.GetHeader("To")[0] == "tess@example.com" &&
						msg.GetHeader("Subject")[0] == "Welcome" &&
						msg.GetHeader("From")[0] == mailer.sender &&
						len(msg.GetHeader("Date")) == 1
				})).Return(tc.dialErr)
			}

			err := mailer.send("tess@example.com", data, "welcome_email.html")
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			} else {
				assert.NoError(t, err)
			}

			renderer.AssertExpectations(t)
			dialer.AssertExpectations(t)
		})
	}
}
