package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"sticks-bot/internal/domain"
	"sticks-bot/internal/infra/metrics"
	"sticks-bot/internal/usecase/changes"
)

// Subscribers описывает часть реестра подписок, нужную для рассылки.
type Subscribers interface {
	All() []int64
	Size() int
	Evict(ctx context.Context, chatIDs []int64) int
}

// Report описывает итог рассылки.
type Report struct {
	Delivered int
	Failed    int
	Evicted   []int64
}

// Notifier рассылает сообщения об изменениях всем подписчикам.
type Notifier struct {
	messenger domain.Messenger
	subs      Subscribers
	log       zerolog.Logger
}

// NewNotifier создаёт рассыльщика. messenger может быть nil, тогда рассылка не выполняется.
func NewNotifier(messenger domain.Messenger, subs Subscribers, log zerolog.Logger) *Notifier {
	return &Notifier{messenger: messenger, subs: subs, log: log}
}

// Ready сообщает, есть ли кому и через что отправлять уведомления.
func (n *Notifier) Ready() bool {
	return n.messenger != nil && n.subs.Size() > 0
}

// Notify отправляет одно сообщение со всеми изменениями каждому подписчику.
// Ошибка доставки одному чату не мешает остальным. Чаты, заблокировавшие бота,
// удаляются из реестра одной пачкой после рассылки.
func (n *Notifier) Notify(ctx context.Context, list []domain.Change) Report {
	var report Report
	if len(list) == 0 || !n.Ready() {
		return report
	}

	text := changes.Format(list)
	var unreachable []int64
	for _, chatID := range n.subs.All() {
		_, err := n.messenger.SendText(ctx, chatID, text, domain.SendOptions{ParseMode: "HTML"})
		switch {
		case err == nil:
			report.Delivered++
			metrics.ObserveNotification("delivered")
			n.log.Debug().Int64("chat", chatID).Msg("уведомление отправлено")
		case errors.Is(err, domain.ErrRecipientUnreachable):
			report.Failed++
			unreachable = append(unreachable, chatID)
			metrics.ObserveNotification("unreachable")
			n.log.Info().Err(err).Int64("chat", chatID).Msg("подписчик заблокировал бота и будет удалён")
		default:
			report.Failed++
			metrics.ObserveNotification("error")
			n.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить уведомление")
		}
	}

	if len(unreachable) > 0 {
		removed := n.subs.Evict(ctx, unreachable)
		metrics.SubscribersEvicted.Add(float64(removed))
		report.Evicted = unreachable
		n.log.Info().Int("removed", removed).Msg("удалены неактивные подписчики")
	}
	return report
}
