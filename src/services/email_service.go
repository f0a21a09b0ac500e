package services

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/opencaptable/captable/backend/src/config"
	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/models"
)

func NewEmailService() EmailService {
	if config.Cfg == nil {
		logger.L.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		return &SMTPEmailService{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

// reportBodies renders plain-text and HTML summaries of the cap table.
func reportBodies(issuer models.Issuer, view *models.CapTableView, summary *models.DashboardSummary) (plain string, html string) {
	holders := make([]*models.HolderState, 0, len(view.Holders))
	for _, holder := range view.Holders {
		holders = append(holders, holder)
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Percentages.FullyDiluted != holders[j].Percentages.FullyDiluted {
			return holders[i].Percentages.FullyDiluted > holders[j].Percentages.FullyDiluted
		}
		return holders[i].Name < holders[j].Name
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Cap table report for %s\n\n", issuer.LegalName)
	fmt.Fprintf(&sb, "Outstanding shares: %s\n", view.Totals.Outstanding.String())
	fmt.Fprintf(&sb, "As-converted shares: %s\n", view.Totals.AsConverted.String())
	fmt.Fprintf(&sb, "Fully diluted shares: %s\n", view.Totals.FullyDiluted.String())
	fmt.Fprintf(&sb, "Total voting rights: %s\n", view.Totals.VotingRights.String())
	fmt.Fprintf(&sb, "Options pool: %s authorized, %s issued, %s unallocated\n",
		view.OptionsPool.TotalAuthorized.String(), view.OptionsPool.TotalIssued.String(), view.OptionsPool.Unallocated.String())
	if summary != nil {
		fmt.Fprintf(&sb, "\nTotal raised: %s\n", summary.TotalRaised.String())
		fmt.Fprintf(&sb, "Latest share price: %s\n", summary.LatestSharePrice.String())
		if summary.Valuation != nil {
			fmt.Fprintf(&sb, "Implied valuation: %s (%s)\n", summary.Valuation.Amount.String(), summary.Valuation.Kind)
		}
	}
	fmt.Fprintf(&sb, "\nHolders: %d\n", len(holders))
	for _, holder := range holders {
		fmt.Fprintf(&sb, "  %s: %.2f%% outstanding, %.2f%% fully diluted\n",
			holder.Name, holder.Percentages.Outstanding, holder.Percentages.FullyDiluted)
	}
	plain = sb.String()

	var hb strings.Builder
	fmt.Fprintf(&hb, `<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	fmt.Fprintf(&hb, "<h2>Cap table report for %s</h2>", issuer.LegalName)
	fmt.Fprintf(&hb, "<p>Outstanding: %s<br>As-converted: %s<br>Fully diluted: %s<br>Voting rights: %s</p>",
		view.Totals.Outstanding.String(), view.Totals.AsConverted.String(),
		view.Totals.FullyDiluted.String(), view.Totals.VotingRights.String())
	fmt.Fprintf(&hb, "<table border=\"1\" cellpadding=\"6\" cellspacing=\"0\"><tr><th>Holder</th><th>Outstanding %%</th><th>Fully diluted %%</th></tr>")
	for _, holder := range holders {
		fmt.Fprintf(&hb, "<tr><td>%s</td><td>%.2f</td><td>%.2f</td></tr>",
			holder.Name, holder.Percentages.Outstanding, holder.Percentages.FullyDiluted)
	}
	fmt.Fprintf(&hb, "</table></body></html>")
	html = hb.String()
	return plain, html
}

type SMTPEmailService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
}

func (s *SMTPEmailService) SendCapTableReport(toEmail string, issuer models.Issuer, view *models.CapTableView, summary *models.DashboardSummary) error {
	from := s.SenderEmail
	to := []string{toEmail}
	subject := fmt.Sprintf("Cap Table Report: %s", issuer.LegalName)
	body, _ := reportBodies(issuer, view, summary)

	header := make(map[string]string)
	header["From"] = from
	header["To"] = toEmail
	header["Subject"] = subject
	header["MIME-version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"UTF-8\""
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body
	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	if err := smtp.SendMail(addr, auth, from, to, []byte(message)); err != nil {
		logger.L.Error("Failed to send cap table report via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send cap table report via SMTP: %w", err)
	}
	logger.L.Info("Cap table report sent successfully via SMTP", "to", toEmail, "issuerID", issuer.ID)
	return nil
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) SendCapTableReport(toEmail string, issuer models.Issuer, view *models.CapTableView, summary *models.DashboardSummary) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject := fmt.Sprintf("Cap Table Report: %s", issuer.LegalName)
	plainTextBody, htmlBody := reportBodies(issuer, view, summary)

	message := s.mg.NewMessage(from, subject, plainTextBody, toEmail)
	message.SetHtml(htmlBody)
	message.AddTag("captable-report")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send cap table report via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Cap table report sent successfully via Mailgun", "to", toEmail, "id", id, "issuerID", issuer.ID)
	return nil
}

type MockEmailService struct{}

func (m *MockEmailService) SendCapTableReport(toEmail string, issuer models.Issuer, view *models.CapTableView, summary *models.DashboardSummary) error {
	body, _ := reportBodies(issuer, view, summary)
	logger.L.Info("MockEmailService: Would send cap table report.",
		"to", toEmail, "issuerID", issuer.ID, "bodyLength", len(body))
	return nil
}
