package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/repository"
	"apexpulse/internal/entity"
	"apexpulse/pkg/common"
	"apexpulse/pkg/email"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/utils"
)

// NotificationService sends the daily signals email.
type NotificationService interface {
	// SendDaily returns the delivery outcome. Email problems never fail the caller's pipeline,
	// so the error is informational.
	SendDaily(ctx context.Context, user *entity.User, portfolio []dto.PortfolioLine, ideas []dto.SignalIdea) (string, error)
}

// NewNotificationService creates a new notification service.
func NewNotificationService(cfg config.Email, newSender email.SenderFactory, emailLogRepo repository.EmailLogRepository, log *logger.Logger) NotificationService {
	if cfg.Subject == "" {
		cfg.Subject = common.DailySignalsEmailSubject
	}
	if newSender == nil {
		newSender = email.NewResendSender
	}
	return &notificationService{
		cfg:          cfg,
		newSender:    newSender,
		emailLogRepo: emailLogRepo,
		logger:       log,
		now:          utils.TimeNowUTC,
	}
}

type notificationService struct {
	cfg          config.Email
	newSender    email.SenderFactory
	emailLogRepo repository.EmailLogRepository
	logger       *logger.Logger
	now          func() time.Time
}

func (s *notificationService) SendDaily(ctx context.Context, user *entity.User, portfolio []dto.PortfolioLine, ideas []dto.SignalIdea) (string, error) {
	settings := user.ApiSetting

	apiKey, from, to := s.cfg.ResendAPIKey, s.cfg.From, user.Email
	if settings != nil {
		if !settings.DailyEmailActive {
			return dto.EmailOutcomeSkipped, nil
		}
		if settings.ResendAPIKey != "" {
			apiKey = settings.ResendAPIKey
		}
		if settings.ResendFrom != "" {
			from = settings.ResendFrom
		}
		if settings.DailyEmailTo != "" {
			to = settings.DailyEmailTo
		}
	}
	if apiKey == "" || from == "" || to == "" {
		s.logger.DebugContext(ctx, "Daily email not configured, skipping")
		return dto.EmailOutcomeSkipped, nil
	}

	msg := email.Message{
		From:     from,
		To:       []string{to},
		Subject:  s.cfg.Subject,
		Markdown: BuildDailyEmail(user.Name, portfolio, ideas, s.now()),
	}

	record := &entity.EmailLog{
		OwnerID:   user.ID,
		Recipient: to,
		Subject:   msg.Subject,
		Status:    entity.EmailStatusSent,
	}
	outcome := dto.EmailOutcomeSent

	id, sendErr := s.newSender(apiKey).Send(ctx, msg)
	if sendErr != nil {
		record.Status = entity.EmailStatusFailed
		record.Error = sendErr.Error()
		outcome = dto.EmailOutcomeFailed
		s.logger.WarnContext(ctx, "Failed to send daily email", logger.ErrorField(sendErr))
	} else {
		s.logger.InfoContext(ctx, "Daily email sent", logger.StringField("email_id", id))
	}

	if err := s.emailLogRepo.Create(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write email log", logger.ErrorField(err))
	}
	return outcome, sendErr
}

// BuildDailyEmail renders the markdown body of the daily email.
func BuildDailyEmail(name string, portfolio []dto.PortfolioLine, ideas []dto.SignalIdea, at time.Time) string {
	var sb strings.Builder

	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	sb.WriteString("# ApexPulse Daily Signals\n\n")
	sb.WriteString(fmt.Sprintf("%s, here is your update for %s UTC.\n\n", greeting, at.UTC().Format("Mon, 02 Jan 2006 15:04")))

	sb.WriteString("## Portfolio\n\n")
	if len(portfolio) == 0 {
		sb.WriteString("_No holdings yet._\n\n")
	} else {
		sb.WriteString("| Asset | Amount | Price | Value |\n")
		sb.WriteString("| --- | ---: | ---: | ---: |\n")
		total := 0.0
		for _, line := range portfolio {
			price := "n/a"
			if line.PriceUSD > 0 {
				price = formatPrice(line.PriceUSD)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", line.Asset, line.Amount.String(), price, email.FormatUSD(line.ValueUSD)))
			total += line.ValueUSD
		}
		sb.WriteString(fmt.Sprintf("\n**Total: %s**\n\n", email.FormatUSD(total)))
	}

	sb.WriteString("## Swing Signals\n\n")
	if len(ideas) == 0 {
		sb.WriteString("_No signals generated today._\n")
		return sb.String()
	}
	for i, idea := range ideas {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%.0f%% confidence, %s)", i+1, idea.Symbol, idea.Confidence, idea.Source))
		if idea.Thesis != "" {
			sb.WriteString(": " + idea.Thesis)
		}
		sb.WriteString("\n")

		var levels []string
		if idea.EntryPrice != nil {
			levels = append(levels, "Entry "+formatPrice(*idea.EntryPrice))
		}
		if idea.StopLoss != nil {
			levels = append(levels, "SL "+formatPrice(*idea.StopLoss))
		}
		if idea.TakeProfit != nil {
			levels = append(levels, "TP "+formatPrice(*idea.TakeProfit))
		}
		if len(levels) > 0 {
			sb.WriteString("   " + strings.Join(levels, " | ") + "\n")
		}
	}
	sb.WriteString("\n_Not financial advice._\n")
	return sb.String()
}

// formatPrice keeps sub-dollar prices readable; money rounds them to cents.
func formatPrice(p float64) string {
	if p >= 1 {
		return email.FormatUSD(p)
	}
	return "$" + strconv.FormatFloat(p, 'g', 4, 64)
}
