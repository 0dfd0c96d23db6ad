package poll

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
)

var (
	ErrPollActive         = errors.New("опрос уже активен")
	ErrNoPoll             = errors.New("активного опроса нет")
	ErrUnknownParticipant = errors.New("автор не найден в списке участников")
	ErrNoTimeInText       = errors.New("в сообщении нет времени")
	ErrTimeOutOfRange     = errors.New("время вне допустимого диапазона")
	ErrTimeGranularity    = errors.New("минуты не кратны шагу")
)

// timePattern ищет время вида H:MM или HH:MM. Берётся первое совпадение.
var timePattern = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)

// ContainsTime сообщает, похож ли текст на голос за время.
func ContainsTime(text string) bool {
	return timePattern.MatchString(text)
}

// Service хранит опросы о времени игры по чатам. Состояние живёт только в памяти.
type Service struct {
	dir     domain.ParticipantDirectory
	minHour int
	maxHour int
	step    int
	now     func() time.Time

	mu    sync.Mutex
	polls map[int64]*domain.Poll
}

// NewService создаёт сервис опросов. Допустимое время: часы [minHour, maxHour],
// минуты кратны step.
func NewService(dir domain.ParticipantDirectory, minHour, maxHour, step int, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if step <= 0 {
		step = 1
	}
	return &Service{
		dir:     dir,
		minHour: minHour,
		maxHour: maxHour,
		step:    step,
		now:     now,
		polls:   make(map[int64]*domain.Poll),
	}
}

// Open создаёт опрос в чате. Повторный вызов при активном опросе возвращает
// ErrPollActive и не трогает голоса.
func (s *Service) Open(chatID int64, author domain.Identity) (domain.Poll, error) {
	name, ok := s.dir.Resolve(author)
	if !ok {
		return domain.Poll{}, ErrUnknownParticipant
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.polls[chatID]; ok {
		return p.Clone(), ErrPollActive
	}
	p := &domain.Poll{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Creator:   name,
		CreatedAt: s.now(),
		Votes:     make(map[string]string),
	}
	s.polls[chatID] = p
	return p.Clone(), nil
}

// SetMessageID запоминает сообщение, в котором показан опрос.
func (s *Service) SetMessageID(chatID int64, pollID string, messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.polls[chatID]; ok && p.ID == pollID {
		p.MessageID = messageID
	}
}

// Poll возвращает копию активного опроса чата.
func (s *Service) Poll(chatID int64) (domain.Poll, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[chatID]
	if !ok {
		return domain.Poll{}, false
	}
	return p.Clone(), true
}

// CastVote разбирает время из текста и записывает голос участника.
// Повторный голос перезаписывает предыдущий. Возвращает нормализованное время HH:MM.
func (s *Service) CastVote(chatID int64, author domain.Identity, text string) (string, domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[chatID]
	if !ok {
		return "", domain.Poll{}, ErrNoPoll
	}
	name, ok := s.dir.Resolve(author)
	if !ok {
		metrics.ObserveVote("unknown")
		return "", domain.Poll{}, ErrUnknownParticipant
	}
	at, err := s.ParseTime(text)
	if err != nil {
		metrics.ObserveVote("invalid")
		return "", domain.Poll{}, err
	}

	p.Votes[name] = at
	metrics.ObserveVote("accepted")
	return at, p.Clone(), nil
}

// ParseTime извлекает первое время из текста и проверяет диапазон и шаг минут.
func (s *Service) ParseTime(text string) (string, error) {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return "", &domain.ValidationError{
			Field: "time",
			Hint:  "Укажите время в формате ЧЧ:ММ, например 19:30",
			Err:   ErrNoTimeInText,
		}
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	if hour < s.minHour || hour > s.maxHour {
		return "", &domain.ValidationError{
			Field: "time",
			Hint:  fmt.Sprintf("Время должно быть с %02d:00 до %02d:59", s.minHour, s.maxHour),
			Err:   ErrTimeOutOfRange,
		}
	}
	if minute%s.step != 0 {
		return "", &domain.ValidationError{
			Field: "time",
			Hint:  fmt.Sprintf("Минуты должны быть кратны %d (например, 19:00, 19:05, 19:10)", s.step),
			Err:   ErrTimeGranularity,
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// TimeGroup собирает участников, выбравших одно время.
type TimeGroup struct {
	Time  string
	Names []string
}

// Tally группирует голоса по времени в порядке возрастания и возвращает
// участников из списка, которые ещё не проголосовали.
func Tally(p domain.Poll, participants []string) ([]TimeGroup, []string) {
	byTime := make(map[string][]string)
	for name, at := range p.Votes {
		byTime[at] = append(byTime[at], name)
	}
	times := make([]string, 0, len(byTime))
	for at := range byTime {
		times = append(times, at)
	}
	sort.Strings(times)

	groups := make([]TimeGroup, 0, len(times))
	for _, at := range times {
		names := byTime[at]
		sort.Strings(names)
		groups = append(groups, TimeGroup{Time: at, Names: names})
	}

	var pending []string
	for _, name := range participants {
		if _, ok := p.Votes[name]; !ok {
			pending = append(pending, name)
		}
	}
	return groups, pending
}
