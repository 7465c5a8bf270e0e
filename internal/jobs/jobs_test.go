package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewScheduler(log)

	err := s.Add(Job{Name: "bad", Schedule: "every tuesday", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())

	err = s.Add(Job{Name: "nil", Schedule: "@hourly"})
	assert.Error(t, err)
}

func TestAddRegistersEntry(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewScheduler(log)

	require.NoError(t, s.Add(Job{Name: "sync", Schedule: "@hourly", Run: func(context.Context) error { return nil }}))
	require.NoError(t, s.Add(Job{Name: "sync2", Schedule: "*/5 * * * *", Run: func(context.Context) error { return nil }}))
	assert.Equal(t, 2, s.Len())

	s.Start()
	s.Stop(context.Background())
}

func TestRunNowLogsFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := NewScheduler(log)

	s.RunNow(Job{Name: "boom", Run: func(context.Context) error { return errors.New("db gone") }})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "boom", entry.Data["job"])
}
