package game

import (
	"context"
	"sync"

	opt "github.com/repeale/fp-go/option"

	"rocket-lander/backend/internal/core/domain/command"
)

// Mailbox копит команды агентов между тиками.
// Тик забирает не более одной команды: новая заменяет старую,
// но еще не выполненный Reset не перекрывается управлением.
type Mailbox struct {
	mu          sync.Mutex
	pending     opt.Option[command.Command]
	latest      string
	posted      uint64
	dropped     uint64
	overwritten uint64
}

// MailboxStats счетчики почтового ящика.
// Dropped включает неразобранные строки и управление, отброшенное из-за ожидающего Reset.
type MailboxStats struct {
	Posted      uint64 `json:"posted"`
	Dropped     uint64 `json:"dropped"`
	Overwritten uint64 `json:"overwritten"`
}

// NewMailbox создает пустой почтовый ящик
func NewMailbox() *Mailbox {
	return &Mailbox{pending: opt.None[command.Command]()}
}

// Post разбирает строку и кладет команду в ящик.
// Возвращает false, если строка не разобрана.
func (m *Mailbox) Post(raw string) bool {
	cmd := command.Parse(raw)

	m.mu.Lock()
	defer m.mu.Unlock()

	if opt.IsNone(cmd) {
		m.dropped++
		return false
	}
	m.posted++

	if opt.IsSome(m.pending) {
		// ожидающий Reset сильнее управления: отбрасывается новая команда
		if m.pending.Value.Mode() == command.ModeReset && cmd.Value.Mode() != command.ModeReset {
			m.dropped++
			return true
		}
		m.overwritten++
	}
	m.pending = cmd
	return true
}

// Take забирает команду для текущего тика
func (m *Mailbox) Take() opt.Option[command.Command] {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := m.pending
	m.pending = opt.None[command.Command]()
	return cmd
}

// Publish запоминает последнее наблюдение
func (m *Mailbox) Publish(observation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = observation
}

// Latest последнее опубликованное наблюдение
func (m *Mailbox) Latest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// HandleLine кладет команду в ящик и сразу отвечает последним наблюдением.
// Так транспорты работают в режиме реального времени без ожидания тика.
func (m *Mailbox) HandleLine(_ context.Context, raw string) (string, error) {
	m.Post(raw)
	return m.Latest(), nil
}

// Stats возвращает счетчики
func (m *Mailbox) Stats() MailboxStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MailboxStats{Posted: m.posted, Dropped: m.dropped, Overwritten: m.overwritten}
}
