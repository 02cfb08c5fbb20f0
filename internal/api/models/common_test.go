package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqoutlook/aqoutlook/internal/api/models"
)

func TestTimestamp_MarshalUTC(t *testing.T) {
	almaty := time.FixedZone("ALMT", 5*3600)
	ts := models.Timestamp(time.Date(2025, 1, 15, 14, 30, 5, 900, almaty))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-15T09:30:05Z"`, string(data))
}

func TestTimestamp_Unmarshal(t *testing.T) {
	var ts models.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-01-15T09:30:05+06:00"`), &ts))
	assert.True(t, ts.Time().Equal(time.Date(2025, 1, 15, 3, 30, 5, 0, time.UTC)))

	before := ts
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.Equal(t, before, ts)

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestTimestampOf(t *testing.T) {
	assert.Nil(t, models.TimestampOf(nil))

	now := time.Now()
	got := models.TimestampOf(&now)
	require.NotNil(t, got)
	assert.True(t, got.Time().Equal(now))
}
