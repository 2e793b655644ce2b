package service

import (
	"fmt"
	"log"

	"github.com/mmoboard/board/internal/models"
)

// ==============================================
// EMAIL SERVICE
// ==============================================

// EmailService composes the board's transactional mail and hands it to
// the transport. Code-delivery mail (registration codes, reset links)
// returns transport errors to the caller; notification mail is
// best-effort and callers are expected to log-and-continue.
type EmailService struct {
	mailer  Mailer
	siteURL string
}

func NewEmailService(mailer Mailer, siteURL string) *EmailService {
	return &EmailService{mailer: mailer, siteURL: siteURL}
}

// ==============================================
// CODE DELIVERY
// ==============================================

// SendRegistrationCode mails the 6-digit confirmation code.
func (s *EmailService) SendRegistrationCode(email, code string) error {
	subject := "Registration confirmation code - MMO Board"
	body := fmt.Sprintf(`Hello,

Your registration confirmation code is: %s

The code is valid for 10 minutes.

Enter this code on the site to complete your registration.

If you didn't register, please ignore this email.

Best regards,
The MMO Board Team
`, code)

	return s.mailer.Send(subject, body, []string{email})
}

// SendPasswordResetLink mails a one-time password reset link.
func (s *EmailService) SendPasswordResetLink(email, link string) error {
	subject := "Password reset - MMO Board"
	body := fmt.Sprintf(`Hello,

To reset your password, follow this link:

%s

If you didn't request a reset, please ignore this email and your
password will remain unchanged.

Best regards,
The MMO Board Team
`, link)

	return s.mailer.Send(subject, body, []string{email})
}

// ==============================================
// NOTIFICATIONS
// ==============================================

// SendWelcome greets a freshly registered user.
func (s *EmailService) SendWelcome(user *models.User) error {
	subject := "Welcome to MMO Board!"
	body := fmt.Sprintf(`Hello %s,

Thank you for registering on our board.

You can now:
- Post ads
- Respond to other players' ads
- Set up your profile

Enjoy!

Best regards,
The MMO Board Team
`, user.Username)

	return s.mailer.Send(subject, body, []string{user.Email})
}

// SendAdCreated confirms a newly published ad to its author.
func (s *EmailService) SendAdCreated(ad *models.Ad, author *models.User) error {
	subject := fmt.Sprintf("Your ad %q has been published!", ad.Title)
	body := fmt.Sprintf(`Hello %s,

Your ad %q has been published on MMO Board.

Category: %s

You can view it here:
%s/ads/%d/

Manage responses in your account:
%s/responses/

Best regards,
The MMO Board Team
`, author.Username, ad.Title, ad.CategoryName, s.siteURL, ad.ID, s.siteURL)

	return s.mailer.Send(subject, body, []string{author.Email})
}

// SendNewResponse notifies an ad author about a new response.
func (s *EmailService) SendNewResponse(ad *models.Ad, resp *models.Response, author *models.User) error {
	subject := fmt.Sprintf("New response to your ad %q", ad.Title)
	body := fmt.Sprintf(`Hello %s,

%s responded to your ad %q.

Response text:
%s

You can review and accept the response in your account:
%s/responses/

Best regards,
The MMO Board Team
`, author.Username, resp.FromUsername, ad.Title, resp.Text, s.siteURL)

	return s.mailer.Send(subject, body, []string{author.Email})
}

// SendResponseAccepted congratulates a responder whose response was
// accepted, including the author's contact address.
func (s *EmailService) SendResponseAccepted(resp *models.Response, author *models.User) error {
	subject := fmt.Sprintf("Your response to %q was accepted!", resp.AdTitle)
	body := fmt.Sprintf(`Congratulations, %s!

%s accepted your response to the ad %q.

You can now contact the author directly:
%s

Your response text:
%s

Best regards,
The MMO Board Team
`, resp.FromUsername, author.Username, resp.AdTitle, author.Email, resp.Text)

	return s.mailer.Send(subject, body, []string{resp.FromEmail})
}

// SendNewsletter mails subject/body to every recipient, one message
// each. Per-recipient failures are logged and skipped; the sent count
// is returned.
func (s *EmailService) SendNewsletter(subject, body string, recipients []models.User) int {
	sent := 0
	for i := range recipients {
		if err := s.mailer.Send(subject, body, []string{recipients[i].Email}); err != nil {
			log.Printf("newsletter delivery to %s failed: %v", recipients[i].Email, err)
			continue
		}
		sent++
	}
	return sent
}
