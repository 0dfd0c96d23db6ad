package poll

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sticks-bot/internal/domain"
)

type staticDirectory map[string]string

func (d staticDirectory) Resolve(id domain.Identity) (string, bool) {
	name, ok := d[id.Username]
	return name, ok
}

func (d staticDirectory) Participants() []string {
	return []string{"Аня", "Боря", "Вова"}
}

var (
	anya   = domain.Identity{UserID: 1, Username: "anya"}
	borya  = domain.Identity{UserID: 2, Username: "borya"}
	vova   = domain.Identity{UserID: 3, Username: "vova"}
	random = domain.Identity{UserID: 99, Username: "random"}
)

func newTestService() *Service {
	dir := staticDirectory{"anya": "Аня", "borya": "Боря", "vova": "Вова"}
	fixed := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	return NewService(dir, 16, 23, 5, func() time.Time { return fixed })
}

func TestOpen(t *testing.T) {
	s := newTestService()

	p, err := s.Open(10, anya)
	require.NoError(t, err)
	assert.Equal(t, "Аня", p.Creator)
	assert.Equal(t, int64(10), p.ChatID)
	assert.NotEmpty(t, p.ID)
	assert.Empty(t, p.Votes)

	_, ok := s.Poll(11)
	assert.False(t, ok)
}

func TestOpenUnknownParticipantLeavesNoState(t *testing.T) {
	s := newTestService()

	_, err := s.Open(10, random)
	require.ErrorIs(t, err, ErrUnknownParticipant)
	_, ok := s.Poll(10)
	assert.False(t, ok)
}

func TestOpenTwiceKeepsVotes(t *testing.T) {
	s := newTestService()
	first, err := s.Open(10, anya)
	require.NoError(t, err)
	_, _, err = s.CastVote(10, borya, "давайте в 19:30")
	require.NoError(t, err)

	again, err := s.Open(10, vova)
	require.ErrorIs(t, err, ErrPollActive)
	assert.Equal(t, first.ID, again.ID)

	current, ok := s.Poll(10)
	require.True(t, ok)
	assert.Equal(t, first.ID, current.ID)
	assert.Equal(t, map[string]string{"Боря": "19:30"}, current.Votes)
}

func TestCastVoteValidation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		err  error
	}{
		{name: "accepted", text: "16:05", want: "16:05"},
		{name: "morning is out of range", text: "буду к 9:00", err: ErrTimeOutOfRange},
		{name: "late evening", text: "23:55", want: "23:55"},
		{name: "not multiple of five", text: "16:03", err: ErrTimeGranularity},
		{name: "below range", text: "15:55", err: ErrTimeOutOfRange},
		{name: "first match wins", text: "19:00 или 20:00", want: "19:00"},
		{name: "no time", text: "привет", err: ErrNoTimeInText},
		{name: "invalid minutes", text: "19:75", err: ErrNoTimeInText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService()
			_, err := s.Open(1, anya)
			require.NoError(t, err)

			got, p, err := s.CastVote(1, borya, tt.text)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.NotEmpty(t, verr.Hint)

				current, _ := s.Poll(1)
				assert.Empty(t, current.Votes)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, p.Votes["Боря"])
		})
	}
}

func TestParseTimePadsHour(t *testing.T) {
	s := NewService(staticDirectory{}, 0, 23, 5, nil)

	got, err := s.ParseTime("в 9:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", got)
}

func TestCastVoteOverwrites(t *testing.T) {
	s := newTestService()
	_, err := s.Open(1, anya)
	require.NoError(t, err)

	_, _, err = s.CastVote(1, borya, "16:00")
	require.NoError(t, err)
	_, p, err := s.CastVote(1, borya, "18:30")
	require.NoError(t, err)

	assert.Len(t, p.Votes, 1)
	assert.Equal(t, "18:30", p.Votes["Боря"])
}

func TestCastVoteRejections(t *testing.T) {
	s := newTestService()

	_, _, err := s.CastVote(1, borya, "19:00")
	require.ErrorIs(t, err, ErrNoPoll)

	_, err = s.Open(1, anya)
	require.NoError(t, err)
	_, _, err = s.CastVote(1, random, "19:00")
	require.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestReturnedPollIsACopy(t *testing.T) {
	s := newTestService()
	_, err := s.Open(1, anya)
	require.NoError(t, err)
	_, p, err := s.CastVote(1, anya, "20:00")
	require.NoError(t, err)

	p.Votes["Вова"] = "21:00"
	current, _ := s.Poll(1)
	assert.NotContains(t, current.Votes, "Вова")
}

func TestSetMessageID(t *testing.T) {
	s := newTestService()
	p, err := s.Open(1, anya)
	require.NoError(t, err)

	s.SetMessageID(1, "other", 5)
	current, _ := s.Poll(1)
	assert.Zero(t, current.MessageID)

	s.SetMessageID(1, p.ID, 42)
	current, _ = s.Poll(1)
	assert.Equal(t, 42, current.MessageID)
}

func TestContainsTime(t *testing.T) {
	assert.True(t, ContainsTime("го в 19:30?"))
	assert.False(t, ContainsTime("/time"))
}
