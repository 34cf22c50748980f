package domain

type MailType string

const (
	MailWelcome            MailType = "welcome"
	MailVerifyEmail        MailType = "verify_email"
	MailReviewStageChanged MailType = "review_stage_changed"
)

type MailMessage struct {
	Type MailType `json:"type"`
	To   string   `json:"to"`
	Data any      `json:"data"`
}

type WelcomeMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

type VerifyEmailMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type ReviewStageChangedMailData struct {
	EmployeeName string `json:"employeeName"`
	ReviewID     int64  `json:"reviewID"`
	From         Stage  `json:"from"`
	To           Stage  `json:"to"`
}
