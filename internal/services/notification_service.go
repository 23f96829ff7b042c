// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trade-registry/internal/config"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/utils"
)

var ErrNotificationNotFound = errors.New("notification not found")

// MailSender delivers one rendered message.
type MailSender func(to, subject, body string) error

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
	logger logrus.FieldLogger
	send   MailSender
}

func NewNotificationService(db *gorm.DB, config *config.Config, logger logrus.FieldLogger) *NotificationService {
	s := &NotificationService{
		db:     db,
		config: config,
		logger: logger,
	}
	s.send = s.sendEmail
	return s
}

// WithSender replaces SMTP delivery, mostly for tests.
func (s *NotificationService) WithSender(send MailSender) *NotificationService {
	s.send = send
	return s
}

func (s *NotificationService) List(userID uuid.UUID, unreadOnly bool, params utils.PaginationParams) ([]models.Notification, int64, error) {
	query := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var notifications []models.Notification
	err := utils.ApplyPagination(query.Order("created_at DESC"), params).Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *NotificationService) UnreadCount(userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead only touches notifications owned by userID.
func (s *NotificationService) MarkRead(userID, notificationID uuid.UUID) error {
	now := time.Now()
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uuid.UUID) (int64, error) {
	now := time.Now()
	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Dispatch emails the recipient of a committed status notification. It
// never blocks the caller and never reports failure back to the workflow.
func (s *NotificationService) Dispatch(ctx context.Context, notification *models.Notification) {
	n := *notification
	go func() {
		if err := s.deliver(n); err != nil {
			s.logger.WithError(err).WithField("notification_id", n.ID).Warn("Failed to email notification")
		}
	}()
}

func (s *NotificationService) deliver(n models.Notification) error {
	var user models.User
	if err := s.db.Select("id", "full_name", "email").First(&user, "id = ?", n.UserID).Error; err != nil {
		return fmt.Errorf("recipient not found: %w", err)
	}
	if user.Email == "" {
		return nil
	}

	data := map[string]interface{}{
		"FullName": user.FullName,
		"Title":    n.Title,
		"Message":  n.Message,
	}
	if n.RequestID != nil {
		data["RequestURL"] = fmt.Sprintf("%s/requests/%s", s.config.Frontend.BaseURL, n.RequestID)
	}

	body, err := s.renderTemplate(statusEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.send(user.Email, n.Title, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPUsername == "" {
		s.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("SMTP not configured, email skipped")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.config.Email.FromName, s.config.Email.FromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const statusEmailTemplate = `
<!DOCTYPE html>
<html dir="rtl" lang="ar">
<body>
	<h2>{{.Title}}</h2>
	<p>{{.FullName}}</p>
	<p>{{.Message}}</p>
	{{if .RequestURL}}<a href="{{.RequestURL}}">عرض الطلب</a>{{end}}
</body>
</html>`
