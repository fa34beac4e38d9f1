// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: опрос платёжного провайдера по
// незакрытым заявкам, закрытие протухших заявок, чистка диалогов.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/features/payments"
)

// Sweeper — чистка протухших диалогов бота.
type Sweeper interface {
	Sweep()
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron           *cron.Cron
	paymentService *payments.Service
	sessions       Sweeper
}

// NewScheduler создаёт планировщик задач в часовом поясе магазина.
func NewScheduler(tz string, paymentService *payments.Service, sessions Sweeper) *Scheduler {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.WithError(err).WithField("tz", tz).Warn("Не удалось загрузить часовой пояс, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:           cron.New(cron.WithLocation(loc)),
		paymentService: paymentService,
		sessions:       sessions,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Резервный опрос провайдера: ловим оплаты, чей вебхук потерялся
	s.cron.AddFunc("*/2 * * * *", func() {
		log.Debug("[CRON] Опрос незакрытых заявок")
		s.paymentService.PollPending(ctx)
	})

	// Закрываем заявки, не оплаченные за отведённое время
	s.cron.AddFunc("*/10 * * * *", func() {
		log.Debug("[CRON] Закрытие протухших заявок")
		s.paymentService.ExpireStale(ctx)
	})

	// Чистим брошенные диалоги
	s.cron.AddFunc("*/15 * * * *", func() {
		s.sessions.Sweep()
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик, дождавшись активных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
