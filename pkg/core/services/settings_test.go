package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_DefaultsWhenAbsent(t *testing.T) {
	store := newMockStore()
	settings := &Settings{Store: store}

	template, err := settings.MessageTemplate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, DefaultMessageTemplate, template)

	enabled, threshold, weeks, err := settings.AutoRenew(t.Context())
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 4, threshold)
	assert.Equal(t, 4, weeks)

	summaryOn, err := settings.WeeklySummaryEnabled(t.Context())
	require.NoError(t, err)
	assert.True(t, summaryOn)

	contacts, err := settings.EscalationContacts(t.Context())
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestSettings_StoredValuesWin(t *testing.T) {
	store := newMockStore()
	store.settings[SettingMessageTemplate] = "custom {name}"
	store.settings[SettingAutoRenewEnabled] = "false"
	store.settings[SettingAutoRenewWeeks] = "8"
	settings := &Settings{Store: store}

	template, err := settings.MessageTemplate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "custom {name}", template)

	enabled, _, weeks, err := settings.AutoRenew(t.Context())
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Equal(t, 8, weeks)
}

func TestSettings_MalformedValuesError(t *testing.T) {
	store := newMockStore()
	store.settings[SettingAutoRenewEnabled] = "definitely"
	store.settings[SettingAutoRenewThresholdWeeks] = "four"
	settings := &Settings{Store: store}

	_, err := settings.Bool(t.Context(), SettingAutoRenewEnabled, true)
	assert.Error(t, err)

	_, err = settings.Int(t.Context(), SettingAutoRenewThresholdWeeks, 4)
	assert.Error(t, err)
}

func TestSettings_EscalationContacts(t *testing.T) {
	store := newMockStore()
	store.settings[SettingEscalationPrimaryName] = "Dispatch"
	store.settings[SettingEscalationPrimaryPhone] = "+15550100"
	store.settings[SettingEscalationSecondPhone] = "+15550200"
	settings := &Settings{Store: store}

	contacts, err := settings.EscalationContacts(t.Context())
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, EscalationContact{Name: "Dispatch", Phone: "+15550100"}, contacts[0])
	assert.Equal(t, EscalationContact{Name: "Secondary", Phone: "+15550200"}, contacts[1])
}
