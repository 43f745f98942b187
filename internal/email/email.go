package email

import (
	"fmt"
	"log"
)

// SendEmail is our placeholder email function.
// In the future, this will use a real email API (like SendGrid).
func SendEmail(to string, subject string, body string) error {
	// Instead of sending a real email, we log it to the console.
	log.Println("====================================================")
	log.Printf("--- NEW EMAIL (PLACEHOLDER) ---")
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Println("--- Body ---")
	log.Println(body)
	log.Println("====================================================")

	return nil
}

// SendOTPEmail sends the password reset code.
func SendOTPEmail(to string, otp string) error {
	subject := "Your Smart Farm Password Reset Code"

	body := fmt.Sprintf(
		"You requested a password reset.\n\nYour one-time code is: %s\n\nThis code will expire in 10 minutes. If you did not request this, ignore this email.",
		otp,
	)

	return SendEmail(to, subject, body)
}
