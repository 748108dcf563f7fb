package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/wneessen/go-mail"
)

// ErrMailerDisabled is returned when no SMTP credentials are configured
var ErrMailerDisabled = errors.New("email is not configured")

// emailCategoryLimit is how many categories the report lists
const emailCategoryLimit = 5

//go:embed templates/insights_email.html
var emailTemplates embed.FS

var insightsEmailTemplate = template.Must(template.ParseFS(emailTemplates, "templates/insights_email.html"))

// MailerConfig holds SMTP settings
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

// Mailer sends insight reports over SMTP
type Mailer struct {
	cfg  MailerConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewMailer creates a mailer. Without a username it is disabled.
func NewMailer(cfg MailerConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

// Enabled reports whether SMTP credentials are set
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Username != ""
}

// SendInsights renders the report and mails it to to. It returns the Message-ID.
func (m *Mailer) SendInsights(ctx context.Context, to string, insights *models.Insights) (string, error) {
	if !m.Enabled() {
		return "", ErrMailerDisabled
	}

	subject, body, err := RenderInsightsEmail(insights)
	if err != nil {
		return "", err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.Username); err != nil {
		return "", fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.send(ctx, msg); err != nil {
		return "", fmt.Errorf("send insights email: %w", err)
	}

	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

type emailTrend struct {
	Icon    string
	Color   template.CSS
	Percent string
}

type emailCategory struct {
	Name       string
	Total      string
	Percentage string
}

type emailView struct {
	PeriodLabel  string
	Period       models.Period
	Start        string
	End          string
	TotalSpent   string
	Trend        *emailTrend
	Categories   []emailCategory
	Anomalies    []string
	SummaryLines []string
}

// RenderInsightsEmail returns the subject and HTML body of an insights report
func RenderInsightsEmail(insights *models.Insights) (string, string, error) {
	view := emailView{
		PeriodLabel:  insights.Period.Label(),
		Period:       insights.Period,
		Start:        insights.CurrentPeriod.Start,
		End:          insights.CurrentPeriod.End,
		TotalSpent:   FormatMoney(insights.CurrentPeriod.TotalSpent),
		SummaryLines: strings.Split(insights.Summary, "\n"),
	}

	if overall, ok := insights.OverallTrend(); ok {
		trend := &emailTrend{Icon: "📈", Color: "#ef4444", Percent: overall.ChangePercent.Abs().String()}
		if overall.Direction == models.DirectionDecrease {
			trend.Icon, trend.Color = "📉", "#10b981"
		}
		view.Trend = trend
	}

	for _, c := range firstN(insights.CurrentPeriod.Categories, emailCategoryLimit) {
		view.Categories = append(view.Categories, emailCategory{
			Name:       c.Name,
			Total:      FormatMoney(c.Total),
			Percentage: c.Percentage.String(),
		})
	}

	for _, a := range firstN(insights.Anomalies, promptListLimit) {
		view.Anomalies = append(view.Anomalies, DescribeAnomaly(a))
	}

	var body bytes.Buffer
	if err := insightsEmailTemplate.Execute(&body, view); err != nil {
		return "", "", fmt.Errorf("render insights email: %w", err)
	}

	subject := fmt.Sprintf("📊 Your %s Spending Report", insights.Period.Adjective())
	return subject, body.String(), nil
}
