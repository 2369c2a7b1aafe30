package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// Setting keys
const (
	SettingMessageTemplate         = "message_template"
	SettingAutoRenewEnabled        = "auto_renew_enabled"
	SettingAutoRenewThresholdWeeks = "auto_renew_threshold_weeks"
	SettingAutoRenewWeeks          = "auto_renew_weeks"
	SettingWeeklySummaryEnabled    = "weekly_summary_enabled"
	SettingEscalationEnabled       = "escalation_enabled"
	SettingEscalationPrimaryName   = "escalation_primary_name"
	SettingEscalationPrimaryPhone  = "escalation_primary_phone"
	SettingEscalationSecondName    = "escalation_secondary_name"
	SettingEscalationSecondPhone   = "escalation_secondary_phone"
)

// DefaultMessageTemplate is the shift-start message used when no
// message_template setting exists. Placeholders: {name}, {start_time},
// {end_time}, {duration}.
const DefaultMessageTemplate = "WhoseOnFirst: {name}, your on-call shift has started.\n" +
	"Duration: {duration}h (until {end_time})\n" +
	"Questions? Contact admin."

// SettingsStore defines the database operations needed for settings
type SettingsStore interface {
	GetSettingValue(ctx context.Context, key string) (string, bool, error)
	SetSettingValue(ctx context.Context, key, value, valueType, description string) error
	GetAllSettings(ctx context.Context) ([]db.Setting, error)
}

// Settings reads typed application settings, falling back to defaults for
// missing keys
type Settings struct {
	Store SettingsStore
}

// String returns a string setting, or fallback when the key is absent
func (s *Settings) String(ctx context.Context, key, fallback string) (string, error) {
	value, ok, err := s.Store.GetSettingValue(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return value, nil
}

// Bool returns a boolean setting, or fallback when the key is absent
func (s *Settings) Bool(ctx context.Context, key string, fallback bool) (bool, error) {
	value, ok, err := s.Store.GetSettingValue(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("setting %s is not a boolean: %w", key, err)
	}
	return parsed, nil
}

// Int returns an integer setting, or fallback when the key is absent
func (s *Settings) Int(ctx context.Context, key string, fallback int) (int, error) {
	value, ok, err := s.Store.GetSettingValue(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("setting %s is not an integer: %w", key, err)
	}
	return parsed, nil
}

// MessageTemplate returns the shift-start message template
func (s *Settings) MessageTemplate(ctx context.Context) (string, error) {
	return s.String(ctx, SettingMessageTemplate, DefaultMessageTemplate)
}

// AutoRenew returns whether auto-renewal is enabled, how few weeks of
// coverage triggers it, and how many weeks to extend by
func (s *Settings) AutoRenew(ctx context.Context) (enabled bool, thresholdWeeks, renewWeeks int, err error) {
	enabled, err = s.Bool(ctx, SettingAutoRenewEnabled, true)
	if err != nil {
		return false, 0, 0, err
	}
	thresholdWeeks, err = s.Int(ctx, SettingAutoRenewThresholdWeeks, 4)
	if err != nil {
		return false, 0, 0, err
	}
	renewWeeks, err = s.Int(ctx, SettingAutoRenewWeeks, 4)
	if err != nil {
		return false, 0, 0, err
	}
	return enabled, thresholdWeeks, renewWeeks, nil
}

// EscalationContact is a name and phone pair for summary and escalation sends
type EscalationContact struct {
	Name  string
	Phone string
}

// EscalationContacts returns the configured summary recipients. Contacts
// without a phone number are omitted.
func (s *Settings) EscalationContacts(ctx context.Context) ([]EscalationContact, error) {
	var contacts []EscalationContact

	primaryPhone, err := s.String(ctx, SettingEscalationPrimaryPhone, "")
	if err != nil {
		return nil, err
	}
	if primaryPhone != "" {
		name, err := s.String(ctx, SettingEscalationPrimaryName, "Primary")
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, EscalationContact{Name: name, Phone: primaryPhone})
	}

	secondaryPhone, err := s.String(ctx, SettingEscalationSecondPhone, "")
	if err != nil {
		return nil, err
	}
	if secondaryPhone != "" {
		name, err := s.String(ctx, SettingEscalationSecondName, "Secondary")
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, EscalationContact{Name: name, Phone: secondaryPhone})
	}

	return contacts, nil
}

// WeeklySummaryEnabled returns whether the weekly summary digest is enabled
func (s *Settings) WeeklySummaryEnabled(ctx context.Context) (bool, error) {
	return s.Bool(ctx, SettingWeeklySummaryEnabled, true)
}

// EscalationEnabled returns whether escalation sends are enabled
func (s *Settings) EscalationEnabled(ctx context.Context) (bool, error) {
	return s.Bool(ctx, SettingEscalationEnabled, true)
}
