package email

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"rss-digest/internal/domain/ports/adapter"
)

var _ adapter.EmailSender = (*SESSender)(nil)

type SESSender struct {
	client *sesv2.Client
	source string
	to     string
}

func NewSESSender(client *sesv2.Client, source, to string) *SESSender {
	return &SESSender{client: client, source: source, to: to}
}

func (s *SESSender) Send(ctx context.Context, subject, htmlBody string) error {
	charset := aws.String("UTF-8")
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.source),
		Destination: &sestypes.Destination{
			ToAddresses: []string{s.to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject), Charset: charset},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(htmlBody), Charset: charset},
					Text: &sestypes.Content{Data: aws.String(textAlternative(htmlBody)), Charset: charset},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", s.to, err)
	}
	return nil
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	blankPattern = regexp.MustCompile(`\n{3,}`)
)

// textAlternative produces the plain-text part for clients that do not
// render HTML. A rough strip is enough; the HTML part is canonical.
func textAlternative(htmlBody string) string {
	text := tagPattern.ReplaceAllString(htmlBody, "")
	text = html.UnescapeString(text)
	text = blankPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
